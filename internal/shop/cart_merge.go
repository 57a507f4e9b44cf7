package shop

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
)

// CartMerger folds an anonymous cart into a just-authenticated user's cart.
// Quantities are capped to available stock instead of failing: a hard error
// here would block login. Merges for the same user are serialized with an
// advisory lock.
type CartMerger struct {
	DB          DBPool
	LockTimeout time.Duration
}

// Merge moves every anonymous line into the user's cart and deletes the
// anonymous cart. Merging an absent or already-merged cart is a no-op.
func (m *CartMerger) Merge(ctx context.Context, sessionToken, userID string) error {
	if sessionToken == "" || userID == "" {
		return errors.New("merge needs a session token and a user id")
	}

	tx, err := m.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setLockTimeout(ctx, tx, m.LockTimeout); err != nil {
		return classifyPgError(err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey("cart-merge:"+userID)); err != nil {
		return classifyPgError(err)
	}

	var anonCartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE session_token=$1`, sessionToken).Scan(&anonCartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return tx.Commit(ctx)
	}
	if err != nil {
		return err
	}

	userCartID, err := ensureUserCart(ctx, tx, userID)
	if err != nil {
		return classifyPgError(err)
	}

	type incoming struct {
		productID string
		quantity  int
		stock     int
	}
	rows, err := tx.Query(ctx, `
		SELECT l.product_id, l.quantity, p.stock
		FROM cart_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1
		ORDER BY l.product_id`, anonCartID)
	if err != nil {
		return err
	}
	var lines []incoming
	for rows.Next() {
		var in incoming
		if err := rows.Scan(&in.productID, &in.quantity, &in.stock); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, in := range lines {
		var existing int
		err := tx.QueryRow(ctx, `SELECT quantity FROM cart_lines WHERE cart_id=$1 AND product_id=$2`,
			userCartID, in.productID).Scan(&existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			moved := MergedQuantity(0, in.quantity, in.stock)
			if moved < MinLineQuantity {
				continue // out of stock, line is dropped with the anonymous cart
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO cart_lines (cart_id, product_id, quantity)
				VALUES ($1, $2, $3)`, userCartID, in.productID, moved); err != nil {
				return classifyPgError(err)
			}
		case err != nil:
			return err
		default:
			merged := MergedQuantity(existing, in.quantity, in.stock)
			if merged < MinLineQuantity {
				// stock ran out entirely; keep the user's line untouched
				continue
			}
			if merged == existing {
				continue
			}
			if _, err := tx.Exec(ctx, `
				UPDATE cart_lines SET quantity=$3, updated_at=now()
				WHERE cart_id=$1 AND product_id=$2`, userCartID, in.productID, merged); err != nil {
				return classifyPgError(err)
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, anonCartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// MergedQuantity caps the combined quantity at available stock and at the
// per-line maximum. A result below 1 means the line cannot be carried.
func MergedQuantity(existing, incoming, stock int) int {
	q := existing + incoming
	if q > stock {
		q = stock
	}
	if q > MaxLineQuantity {
		q = MaxLineQuantity
	}
	return q
}

func ensureUserCart(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `INSERT INTO carts (user_id) VALUES ($1) RETURNING id`, userID).Scan(&id)
	}
	return id, err
}

// advisoryKey hashes a label into the bigint key space of
// pg_advisory_xact_lock.
func advisoryKey(label string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(label))
	return int64(h.Sum64())
}
