package shop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CatalogRepo serves display reads. Stock values here are unlocked and may
// be stale; only the checkout transaction reads stock for decrement.
type CatalogRepo struct{ DB DBPool }

const productColumns = `id, name, price_cents, sale_price_cents, stock, is_active, created_at, updated_at`

func (r *CatalogRepo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.SalePriceCents, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.SalePriceCents, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

var ErrProductNotFound = errors.New("product not found")
