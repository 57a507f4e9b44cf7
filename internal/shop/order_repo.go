package shop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// OrderRepo reads and transitions committed orders. Orders are never
// deleted; they are the audit trail.
type OrderRepo struct {
	DB       DBPool
	Notifier Notifier
}

const orderColumns = `id, order_number, user_id, session_token, status, payment_method,
	full_name, contact_phone, delivery_address, notes,
	subtotal_cents, discount_cents, total_cents, total_items, created_at, updated_at`

// GetByNumber resolves an order by its customer-facing number, scoped to the
// requesting identity.
func (r *OrderRepo) GetByNumber(ctx context.Context, id Identity, number string) (*Order, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number=$1 AND `+orderOwnerClause(id),
		number, ownerArg(id))
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) ListForIdentity(ctx context.Context, id Identity) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+orderOwnerClause(id)+` ORDER BY created_at DESC`,
		ownerArg(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Cancel moves a pending or processing order to canceled.
func (r *OrderRepo) Cancel(ctx context.Context, id Identity, number string) (*Order, error) {
	return r.transition(ctx, number, StatusCanceled, func(o *Order) error {
		if !ownedBy(o, id) {
			return ErrOrderNotFound
		}
		if !o.Cancellable() {
			return ErrNotCancellable
		}
		return nil
	})
}

// UpdateStatus applies an admin-side transition, guarded by the forward-only
// status machine.
func (r *OrderRepo) UpdateStatus(ctx context.Context, number string, to Status) (*Order, error) {
	return r.transition(ctx, number, to, func(o *Order) error {
		if !CanTransition(o.Status, to) {
			return &ValidationError{Fields: map[string][]string{
				"status": {"cannot transition from " + string(o.Status) + " to " + string(to)},
			}}
		}
		return nil
	})
}

func (r *OrderRepo) transition(ctx context.Context, number string, to Status, check func(*Order) error) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number=$1 FOR UPDATE`, number)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := check(o); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE order_number=$1 RETURNING updated_at`,
		number, to).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, classifyPgError(err)
	}
	o.Status = to

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyPgError(err)
	}

	if r.Notifier != nil {
		r.Notifier.NotifyStatusChange(ctx, o)
	}
	return o, nil
}

func (r *OrderRepo) loadLines(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price_cents, total_cents, is_sale_price
		FROM order_lines WHERE order_id=$1`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l OrderLine
		var productID *string
		if err := rows.Scan(&l.ID, &l.OrderID, &productID, &l.ProductName, &l.Quantity,
			&l.UnitPriceCents, &l.TotalCents, &l.IsSalePrice); err != nil {
			return err
		}
		if productID != nil {
			l.ProductID = *productID
		}
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func orderOwnerClause(id Identity) string {
	if id.Authenticated() {
		return `user_id=$2`
	}
	return `session_token=$2`
}

func ownedBy(o *Order, id Identity) bool {
	if id.Authenticated() {
		return o.UserID == id.UserID
	}
	return o.SessionToken == id.SessionToken
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var userID, token *string
	err := row.Scan(&o.ID, &o.OrderNumber, &userID, &token, &o.Status, &o.PaymentMethod,
		&o.FullName, &o.ContactPhone, &o.DeliveryAddress, &o.Notes,
		&o.SubtotalCents, &o.DiscountCents, &o.TotalCents, &o.TotalItems, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID != nil {
		o.UserID = *userID
	}
	if token != nil {
		o.SessionToken = *token
	}
	return &o, nil
}
