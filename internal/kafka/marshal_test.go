package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPayload(t *testing.T) {
	type event struct {
		OrderNumber string `json:"order_number"`
		Status      string `json:"status"`
	}

	raw := json.RawMessage(`{"order_number":"OG-20260830-00001","status":"shipped"}`)
	got, err := UnwrapPayload[event](raw)
	require.NoError(t, err)
	assert.Equal(t, "OG-20260830-00001", got.OrderNumber)
	assert.Equal(t, "shipped", got.Status)

	_, err = UnwrapPayload[event](json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func TestMustMarshalRoundTrip(t *testing.T) {
	b := MustMarshal(map[string]int{"a": 1})
	assert.JSONEq(t, `{"a":1}`, string(b))
}
