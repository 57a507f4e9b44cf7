package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/organicgreen/go-shop/internal/kafka"
	"github.com/organicgreen/go-shop/internal/shop"
)

// KafkaNotifier publishes order events to Kafka, fire-and-forget. It
// implements shop.Notifier; a broker problem is the producer's to log, never
// the checkout's to see.
type KafkaNotifier struct {
	Created *kafkax.Producer // shop.order.created
	Status  *kafkax.Producer // shop.order.status
	Service string
	Log     *zap.Logger
}

func (n *KafkaNotifier) NotifyNewOrder(_ context.Context, o *shop.Order) {
	n.publish(n.Created, EventOrderCreated, o.OrderNumber, kafkax.MustMarshal(NewOrderCreatedPayload(o)))
}

func (n *KafkaNotifier) NotifyStatusChange(_ context.Context, o *shop.Order) {
	n.publish(n.Status, EventOrderStatusChanged, o.OrderNumber, kafkax.MustMarshal(OrderStatusChangedPayload{
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
	}))
}

func (n *KafkaNotifier) publish(p *kafkax.Producer, eventType, orderNumber string, payload []byte) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     n.Service,
		OrderNumber:  orderNumber,
		Payload:      payload,
	}
	p.Publish(PartitionKey(orderNumber), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if n.Log != nil {
		n.Log.Debug("order event queued",
			zap.String("event_type", eventType),
			zap.String("order_number", orderNumber))
	}
}
