package shop

import "time"

// Identity is the owner of a cart: an authenticated user id or an opaque
// anonymous session token, never both.
type Identity struct {
	UserID       string
	SessionToken string
}

func UserIdentity(userID string) Identity      { return Identity{UserID: userID} }
func SessionIdentity(token string) Identity    { return Identity{SessionToken: token} }
func (id Identity) Authenticated() bool        { return id.UserID != "" }
func (id Identity) Valid() bool                { return (id.UserID != "") != (id.SessionToken != "") }

type Product struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	PriceCents     int64      `json:"price_cents"`
	SalePriceCents *int64     `json:"sale_price_cents,omitempty"`
	Stock          int        `json:"stock"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UnitPrice is the authoritative price: the sale price when present and
// lower than the list price, else the list price.
func (p Product) UnitPrice() int64 {
	if p.OnSale() {
		return *p.SalePriceCents
	}
	return p.PriceCents
}

func (p Product) OnSale() bool {
	return p.SalePriceCents != nil && *p.SalePriceCents < p.PriceCents
}

type Cart struct {
	ID           string
	UserID       string
	SessionToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CartLine struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	AddedAt   time.Time
	UpdatedAt time.Time
}

// CartSummaryLine joins a cart line with live product data for display.
// Stock here is an unlocked read and may be stale; the checkout transaction
// re-validates under lock.
type CartSummaryLine struct {
	LineID         string `json:"line_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
	OnSale         bool   `json:"on_sale"`
	AvailableStock int    `json:"available_stock"`
	IsAvailable    bool   `json:"is_available"`
}

type CartSummary struct {
	Lines      []CartSummaryLine `json:"lines"`
	TotalItems int               `json:"total_items"`
	TotalCents int64             `json:"total_cents"`
	IsEmpty    bool              `json:"is_empty"`
}

type ContactInfo struct {
	FullName        string `json:"full_name"`
	ContactPhone    string `json:"contact_phone"`
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
}

type Order struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id,omitempty"`
	SessionToken  string        `json:"-"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ContactInfo
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	TotalCents    int64       `json:"total_cents"`
	TotalItems    int         `json:"total_items"`
	Lines         []OrderLine `json:"lines,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (o Order) Cancellable() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}

// OrderLine is an immutable snapshot of the product at purchase time.
type OrderLine struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id,omitempty"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
	IsSalePrice    bool   `json:"is_sale_price"`
}

// CheckoutInput is everything the client supplies at checkout. FullName and
// ContactPhone may be empty for authenticated users with profile contact data.
type CheckoutInput struct {
	FullName        string        `json:"full_name"`
	ContactPhone    string        `json:"contact_phone"`
	DeliveryAddress string        `json:"delivery_address"`
	Notes           string        `json:"notes"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

// PricedLine is a cart line with its commit-time unit price, as seen by the
// discount hook.
type PricedLine struct {
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	IsSalePrice    bool
}

const (
	MinLineQuantity = 1
	MaxLineQuantity = 999
)
