package shop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCanceled, true},
		{StatusPaid, StatusShipped, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		// never backwards
		{StatusPaid, StatusPending, false},
		{StatusShipped, StatusProcessing, false},
		// terminal states
		{StatusDelivered, StatusCanceled, false},
		{StatusCanceled, StatusPending, false},
		{StatusCanceled, StatusPaid, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderCancellable(t *testing.T) {
	assert.True(t, Order{Status: StatusPending}.Cancellable())
	assert.True(t, Order{Status: StatusProcessing}.Cancellable())
	assert.False(t, Order{Status: StatusPaid}.Cancellable())
	assert.False(t, Order{Status: StatusShipped}.Cancellable())
	assert.False(t, Order{Status: StatusDelivered}.Cancellable())
	assert.False(t, Order{Status: StatusCanceled}.Cancellable())
}
