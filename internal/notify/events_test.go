package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/organicgreen/go-shop/internal/shop"
)

func TestNewOrderCreatedPayload(t *testing.T) {
	o := &shop.Order{
		OrderNumber:   "OG-20260830-00001",
		PaymentMethod: shop.PaymentCOD,
		ContactInfo: shop.ContactInfo{
			FullName:        "Ada Lovelace",
			ContactPhone:    "+998901234567",
			DeliveryAddress: "Tashkent, Amir Temur 1",
		},
		SubtotalCents: 38000,
		TotalCents:    38000,
		TotalItems:    5,
		Lines: []shop.OrderLine{
			{ProductName: "Kale", Quantity: 3, UnitPriceCents: 10000, TotalCents: 30000},
			{ProductName: "Basil", Quantity: 2, UnitPriceCents: 4000, TotalCents: 8000},
		},
	}

	p := NewOrderCreatedPayload(o)
	assert.Equal(t, "OG-20260830-00001", p.OrderNumber)
	assert.Equal(t, "cod", p.PaymentMethod)
	assert.Equal(t, int64(38000), p.TotalCents)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, "Kale", p.Lines[0].ProductName)
	assert.Equal(t, int64(8000), p.Lines[1].TotalCents)
}

func TestPartitionKey(t *testing.T) {
	// same order, same partition
	assert.Equal(t, PartitionKey("OG-20260830-00001"), PartitionKey("OG-20260830-00001"))
	assert.NotEqual(t, PartitionKey("OG-20260830-00001"), PartitionKey("OG-20260830-00002"))
}
