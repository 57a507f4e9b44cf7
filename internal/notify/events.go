package notify

import (
	"encoding/json"
	"time"

	"github.com/organicgreen/go-shop/internal/shop"
)

const (
	TopicOrderCreated = "shop.order.created"
	TopicOrderStatus  = "shop.order.status"

	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Envelope is the versioned wrapper around every published event.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	OrderNumber  string          `json:"order_number"`
	Payload      json.RawMessage `json:"payload"`
}

type OrderLinePayload struct {
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type OrderCreatedPayload struct {
	OrderNumber     string             `json:"order_number"`
	FullName        string             `json:"full_name"`
	ContactPhone    string             `json:"contact_phone"`
	DeliveryAddress string             `json:"delivery_address"`
	Notes           string             `json:"notes,omitempty"`
	PaymentMethod   string             `json:"payment_method"`
	SubtotalCents   int64              `json:"subtotal_cents"`
	TotalCents      int64              `json:"total_cents"`
	TotalItems      int                `json:"total_items"`
	Lines           []OrderLinePayload `json:"lines"`
}

type OrderStatusChangedPayload struct {
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}

func NewOrderCreatedPayload(o *shop.Order) OrderCreatedPayload {
	p := OrderCreatedPayload{
		OrderNumber:     o.OrderNumber,
		FullName:        o.FullName,
		ContactPhone:    o.ContactPhone,
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		PaymentMethod:   string(o.PaymentMethod),
		SubtotalCents:   o.SubtotalCents,
		TotalCents:      o.TotalCents,
		TotalItems:      o.TotalItems,
	}
	for _, l := range o.Lines {
		p.Lines = append(p.Lines, OrderLinePayload{
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.TotalCents,
		})
	}
	return p
}

// PartitionKey keeps every event of one order on the same partition, so
// consumers see them in order.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
