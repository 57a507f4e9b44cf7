package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CartStore owns all mutable cart state. Stock checks here are advisory:
// they return the current available amount so the client can adjust, but the
// authoritative check happens under lock at checkout.
type CartStore struct{ DB DBPool }

// GetOrCreate resolves the identity's cart, creating it lazily on first use.
func (s *CartStore) GetOrCreate(ctx context.Context, id Identity) (Cart, error) {
	if !id.Valid() {
		return Cart{}, errors.New("identity must be a user id or a session token")
	}
	c, err := s.find(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return Cart{}, err
	}

	var userID, token *string
	if id.Authenticated() {
		userID = &id.UserID
	} else {
		token = &id.SessionToken
	}
	err = s.DB.QueryRow(ctx, `
		INSERT INTO carts (user_id, session_token)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`, userID, token).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// lost the insert race, the cart exists now
		return s.find(ctx, id)
	}
	if err != nil {
		return Cart{}, classifyPgError(err)
	}
	c.UserID = id.UserID
	c.SessionToken = id.SessionToken
	return c, nil
}

func (s *CartStore) find(ctx context.Context, id Identity) (Cart, error) {
	var c Cart
	var userID, token *string
	row := s.DB.QueryRow(ctx, `
		SELECT id, user_id, session_token, created_at, updated_at
		FROM carts WHERE `+ownerClause(id), ownerArg(id))
	err := row.Scan(&c.ID, &userID, &token, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrCartNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	if userID != nil {
		c.UserID = *userID
	}
	if token != nil {
		c.SessionToken = *token
	}
	return c, nil
}

func ownerClause(id Identity) string {
	if id.Authenticated() {
		return `user_id=$1`
	}
	return `session_token=$1`
}

func ownerArg(id Identity) string {
	if id.Authenticated() {
		return id.UserID
	}
	return id.SessionToken
}

// AddOrSet upserts a line. An existing line's quantity is overwritten, not
// incremented: the client states the quantity it wants.
func (s *CartStore) AddOrSet(ctx context.Context, id Identity, productID string, quantity int) (CartSummaryLine, error) {
	if err := validateQuantity(quantity); err != nil {
		return CartSummaryLine{}, err
	}

	p, err := (&CatalogRepo{DB: s.DB}).Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			ve := NewValidationError()
			ve.Add("product_id", "product not found")
			return CartSummaryLine{}, ve
		}
		return CartSummaryLine{}, err
	}
	if ve := advisoryCheck(p, quantity); ve != nil {
		return CartSummaryLine{}, ve
	}

	cart, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return CartSummaryLine{}, err
	}

	var lineID string
	err = s.DB.QueryRow(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING id`, cart.ID, productID, quantity).Scan(&lineID)
	if err != nil {
		return CartSummaryLine{}, classifyPgError(err)
	}

	return summaryLine(lineID, p, quantity), nil
}

// UpdateLine sets a line's quantity; zero or negative removes the line, so a
// retried update stays idempotent.
func (s *CartStore) UpdateLine(ctx context.Context, id Identity, lineID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveLine(ctx, id, lineID)
	}
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	cart, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	var productID string
	err = s.DB.QueryRow(ctx, `SELECT product_id FROM cart_lines WHERE id=$1 AND cart_id=$2`, lineID, cart.ID).Scan(&productID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLineNotFound
	}
	if err != nil {
		return err
	}

	p, err := (&CatalogRepo{DB: s.DB}).Get(ctx, productID)
	if err != nil {
		return err
	}
	if ve := advisoryCheck(p, quantity); ve != nil {
		return ve
	}

	_, err = s.DB.Exec(ctx, `UPDATE cart_lines SET quantity=$3, updated_at=now() WHERE id=$1 AND cart_id=$2`,
		lineID, cart.ID, quantity)
	return classifyPgError(err)
}

// RemoveLine deletes a line. Deleting an absent line is a no-op.
func (s *CartStore) RemoveLine(ctx context.Context, id Identity, lineID string) error {
	cart, err := s.find(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1 AND cart_id=$2`, lineID, cart.ID)
	return err
}

// Clear removes every line from the identity's cart.
func (s *CartStore) Clear(ctx context.Context, id Identity) error {
	cart, err := s.find(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, cart.ID)
	return err
}

// Summary returns the cart's lines with live product data and totals.
func (s *CartStore) Summary(ctx context.Context, id Identity) (CartSummary, error) {
	cart, err := s.find(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return CartSummary{IsEmpty: true}, nil
	}
	if err != nil {
		return CartSummary{}, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT l.id, l.quantity, p.id, p.name, p.price_cents, p.sale_price_cents, p.stock, p.is_active
		FROM cart_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1
		ORDER BY l.added_at`, cart.ID)
	if err != nil {
		return CartSummary{}, err
	}
	defer rows.Close()

	sum := CartSummary{}
	for rows.Next() {
		var lineID string
		var qty int
		var p Product
		if err := rows.Scan(&lineID, &qty, &p.ID, &p.Name, &p.PriceCents, &p.SalePriceCents, &p.Stock, &p.IsActive); err != nil {
			return CartSummary{}, err
		}
		sum.Lines = append(sum.Lines, summaryLine(lineID, p, qty))
		sum.TotalItems += qty
		sum.TotalCents += p.UnitPrice() * int64(qty)
	}
	if err := rows.Err(); err != nil {
		return CartSummary{}, err
	}
	sum.IsEmpty = len(sum.Lines) == 0
	return sum, nil
}

func summaryLine(lineID string, p Product, qty int) CartSummaryLine {
	return CartSummaryLine{
		LineID:         lineID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		Quantity:       qty,
		UnitPriceCents: p.UnitPrice(),
		TotalCents:     p.UnitPrice() * int64(qty),
		OnSale:         p.OnSale(),
		AvailableStock: p.Stock,
		IsAvailable:    p.IsActive && p.Stock >= qty,
	}
}

func validateQuantity(q int) error {
	if q < MinLineQuantity || q > MaxLineQuantity {
		ve := NewValidationError()
		ve.Add("quantity", fmt.Sprintf("quantity must be between %d and %d", MinLineQuantity, MaxLineQuantity))
		return ve
	}
	return nil
}

func advisoryCheck(p Product, quantity int) *ValidationError {
	ve := NewValidationError()
	if !p.IsActive {
		ve.Add("product_id", "product is not active")
	} else if quantity > p.Stock {
		ve.Add("quantity", fmt.Sprintf("not enough stock, available: %d", p.Stock))
	}
	if ve.Empty() {
		return nil
	}
	return ve
}
