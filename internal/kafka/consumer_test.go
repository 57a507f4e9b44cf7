package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []kafkago.Message
	closed    bool
}

func (f *fakeReader) ReadMessage(_ context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return kafkago.Message{}, io.EOF
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestConsumerDrainsWorkersBeforeReturning(t *testing.T) {
	r := &fakeReader{}
	for i := 0; i < 20; i++ {
		r.msgs = append(r.msgs, kafkago.Message{Value: []byte{byte(i)}})
	}

	var mu sync.Mutex
	var handled int
	h := func(_ context.Context, _ kafkago.Message) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		handled++
		return nil
	}

	c := &Consumer{r: r, log: zap.NewNop(), workers: 4}

	err := c.Start(context.Background(), h)
	require.ErrorIs(t, err, io.EOF)

	// every dispatched message was fully handled before Start returned
	mu.Lock()
	assert.Equal(t, 20, handled)
	mu.Unlock()
	r.mu.Lock()
	assert.Len(t, r.committed, 20)
	assert.True(t, r.closed)
	r.mu.Unlock()
}

func TestConsumerSkipsCommitOnHandlerError(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{
		{Value: []byte("ok")},
		{Value: []byte("bad")},
	}}

	h := func(_ context.Context, m kafkago.Message) error {
		if string(m.Value) == "bad" {
			return errors.New("handler failed")
		}
		return nil
	}

	c := &Consumer{r: r, log: zap.NewNop(), workers: 1}
	err := c.Start(context.Background(), h)
	require.ErrorIs(t, err, io.EOF)

	require.Len(t, r.committed, 1)
	assert.Equal(t, "ok", string(r.committed[0].Value))
}

func TestConsumerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeReader{msgs: []kafkago.Message{{Value: []byte("x")}}}
	c := &Consumer{r: r, log: zap.NewNop(), workers: 1}

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, func(context.Context, kafkago.Message) error { return nil }) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
}
