package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CheckoutCoordinator converts a cart into an order as one transaction:
// lock products in ascending product-id order, re-validate stock under lock,
// snapshot prices, allocate the order number, decrement stock, clear the
// cart. Any failure before commit rolls everything back.
type CheckoutCoordinator struct {
	DB       DBPool
	Profiles *ProfileRepo
	Notifier Notifier
	Log      *zap.Logger

	OrderPrefix string
	LockTimeout time.Duration

	// DiscountFunc plugs future discount logic into price resolution.
	// Nil means no discount.
	DiscountFunc func(lines []PricedLine) int64

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (c *CheckoutCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *CheckoutCoordinator) Checkout(ctx context.Context, id Identity, in CheckoutInput) (*Order, error) {
	if !id.Valid() {
		return nil, errors.New("identity must be a user id or a session token")
	}

	contact, method, err := c.resolveInput(ctx, id, in)
	if err != nil {
		return nil, err
	}

	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setLockTimeout(ctx, tx, c.LockTimeout); err != nil {
		return nil, classifyPgError(err)
	}

	var cartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE `+ownerClause(id), ownerArg(id)).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	// Exclusive row locks on every referenced product, always in ascending
	// product-id order so two checkouts sharing products cannot deadlock.
	// The cart lines are locked too: a double-submitted checkout blocks
	// here, re-reads the lines the first submit deleted, and fails with
	// ErrEmptyCart instead of creating a second order.
	rows, err := tx.Query(ctx, `
		SELECT l.product_id, l.quantity, p.name, p.price_cents, p.sale_price_cents, p.stock, p.is_active
		FROM cart_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1
		ORDER BY l.product_id
		FOR UPDATE OF l, p`, cartID)
	if err != nil {
		return nil, classifyPgError(err)
	}

	type lockedLine struct {
		productID string
		quantity  int
		product   Product
	}
	var locked []lockedLine
	for rows.Next() {
		var ll lockedLine
		if err := rows.Scan(&ll.productID, &ll.quantity, &ll.product.Name, &ll.product.PriceCents,
			&ll.product.SalePriceCents, &ll.product.Stock, &ll.product.IsActive); err != nil {
			rows.Close()
			return nil, err
		}
		ll.product.ID = ll.productID
		locked = append(locked, ll)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}

	if len(locked) == 0 {
		return nil, ErrEmptyCart
	}

	// Re-validate under lock, collecting every violation so the client sees
	// the full picture in one response.
	var violations []StockViolation
	for _, ll := range locked {
		switch {
		case !ll.product.IsActive:
			violations = append(violations, StockViolation{
				ProductID: ll.productID, ProductName: ll.product.Name,
				Requested: ll.quantity, Available: ll.product.Stock, Inactive: true,
			})
		case ll.quantity > ll.product.Stock:
			violations = append(violations, StockViolation{
				ProductID: ll.productID, ProductName: ll.product.Name,
				Requested: ll.quantity, Available: ll.product.Stock,
			})
		}
	}
	if len(violations) > 0 {
		return nil, &StockError{Violations: violations}
	}

	// Prices are resolved now, under lock, never reused from add-to-cart
	// time.
	priced := make([]PricedLine, 0, len(locked))
	var subtotal int64
	totalItems := 0
	for _, ll := range locked {
		priced = append(priced, PricedLine{
			ProductID:      ll.productID,
			ProductName:    ll.product.Name,
			Quantity:       ll.quantity,
			UnitPriceCents: ll.product.UnitPrice(),
			IsSalePrice:    ll.product.OnSale(),
		})
		subtotal += ll.product.UnitPrice() * int64(ll.quantity)
		totalItems += ll.quantity
	}

	var discount int64
	if c.DiscountFunc != nil {
		discount = c.DiscountFunc(priced)
	}
	if discount < 0 || discount > subtotal {
		return nil, &IntegrityError{Err: fmt.Errorf("discount %d out of range for subtotal %d", discount, subtotal)}
	}

	now := c.now()
	number, err := allocateOrderNumber(ctx, tx, c.OrderPrefix, now)
	if err != nil {
		return nil, err
	}

	order := &Order{
		ID:            uuid.NewString(),
		OrderNumber:   number,
		UserID:        id.UserID,
		SessionToken:  id.SessionToken,
		Status:        StatusPending,
		PaymentMethod: method,
		ContactInfo:   contact,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		TotalItems:    totalItems,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var userID, token *string
	if id.Authenticated() {
		userID = &id.UserID
	} else {
		token = &id.SessionToken
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, session_token, status, payment_method,
			full_name, contact_phone, delivery_address, notes,
			subtotal_cents, discount_cents, total_cents, total_items, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)`,
		order.ID, order.OrderNumber, userID, token, order.Status, order.PaymentMethod,
		order.FullName, order.ContactPhone, order.DeliveryAddress, order.Notes,
		order.SubtotalCents, order.DiscountCents, order.TotalCents, order.TotalItems, now)
	if err != nil {
		return nil, classifyPgError(err)
	}

	for _, pl := range priced {
		line := OrderLine{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			ProductID:      pl.ProductID,
			ProductName:    pl.ProductName,
			Quantity:       pl.Quantity,
			UnitPriceCents: pl.UnitPriceCents,
			TotalCents:     pl.UnitPriceCents * int64(pl.Quantity),
			IsSalePrice:    pl.IsSalePrice,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, product_name, quantity,
				unit_price_cents, total_cents, is_sale_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			line.ID, line.OrderID, line.ProductID, line.ProductName, line.Quantity,
			line.UnitPriceCents, line.TotalCents, line.IsSalePrice)
		if err != nil {
			return nil, classifyPgError(err)
		}
		order.Lines = append(order.Lines, line)
	}

	// Safe: validation above proved sufficiency while the rows stay locked.
	for _, ll := range locked {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`,
			ll.productID, ll.quantity); err != nil {
			return nil, classifyPgError(err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(err)
	}

	if c.Notifier != nil {
		// Post-commit only; the notifier never fails the checkout.
		c.Notifier.NotifyNewOrder(ctx, order)
	}
	if c.Log != nil {
		c.Log.Info("order created",
			zap.String("order_number", order.OrderNumber),
			zap.Int64("total_cents", order.TotalCents),
			zap.Int("total_items", order.TotalItems))
	}
	return order, nil
}

// resolveInput validates client input and fills contact gaps from the user's
// profile. Every problem is collected before returning.
func (c *CheckoutCoordinator) resolveInput(ctx context.Context, id Identity, in CheckoutInput) (ContactInfo, PaymentMethod, error) {
	method := in.PaymentMethod
	if method == "" {
		method = PaymentCOD
	}

	ve := NewValidationError()
	if !method.Valid() {
		ve.Add("payment_method", "unknown payment method")
	}
	if in.DeliveryAddress == "" {
		ve.Add("delivery_address", "delivery address is required")
	}

	contact := ContactInfo{
		FullName:        in.FullName,
		ContactPhone:    in.ContactPhone,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
	}

	if (contact.FullName == "" || contact.ContactPhone == "") && id.Authenticated() && c.Profiles != nil {
		profile, err := c.Profiles.ContactFor(ctx, id.UserID)
		if err != nil {
			return ContactInfo{}, "", err
		}
		if contact.FullName == "" {
			contact.FullName = profile.FullName
		}
		if contact.ContactPhone == "" {
			contact.ContactPhone = profile.Phone
		}
	}
	if contact.FullName == "" {
		ve.Add("full_name", "full name is required")
	}
	if contact.ContactPhone == "" {
		ve.Add("contact_phone", "contact phone is required")
	}

	if !ve.Empty() {
		return ContactInfo{}, "", ve
	}
	return contact, method, nil
}

// setLockTimeout bounds every lock wait in the transaction so a contended
// checkout fails fast with a retryable conflict instead of blocking.
func setLockTimeout(ctx context.Context, tx pgx.Tx, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, d.Milliseconds()))
	return err
}
