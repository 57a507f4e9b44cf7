package shop

import "context"

// Notifier is the post-commit collaborator informing admins and customers of
// order events. Implementations are fire-and-forget: delivery failures are
// logged, never surfaced, so a notification problem can never undo an order.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, o *Order)
	NotifyStatusChange(ctx context.Context, o *Order)
}

type NopNotifier struct{}

func (NopNotifier) NotifyNewOrder(context.Context, *Order)     {}
func (NopNotifier) NotifyStatusChange(context.Context, *Order) {}
