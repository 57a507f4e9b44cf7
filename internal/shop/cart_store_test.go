package shop

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func expectProduct(mock pgxmock.PgxPoolIface, id, name string, price int64, sale *int64, stock int, active bool) {
	now := time.Now()
	mock.ExpectQuery(`FROM products WHERE id`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "price_cents", "sale_price_cents", "stock", "is_active", "created_at", "updated_at",
		}).AddRow(id, name, price, sale, stock, active, now, now))
}

func expectFindCart(mock pgxmock.PgxPoolIface, token, cartID string) {
	now := time.Now()
	mock.ExpectQuery(`FROM carts WHERE session_token`).
		WithArgs(token).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "session_token", "created_at", "updated_at",
		}).AddRow(cartID, nil, ptr(token), now, now))
}

func TestAddOrSetOverwritesQuantity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := SessionIdentity("tok-1")
	s := &CartStore{DB: mock}

	expectProduct(mock, "p1", "Kale", 10000, nil, 20, true)
	expectFindCart(mock, "tok-1", "cart-1")
	mock.ExpectQuery(`INSERT INTO cart_lines`).
		WithArgs("cart-1", "p1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("line-1"))

	line, err := s.AddOrSet(context.Background(), id, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, int64(20000), line.TotalCents)

	// a second add states the new quantity outright
	expectProduct(mock, "p1", "Kale", 10000, nil, 20, true)
	expectFindCart(mock, "tok-1", "cart-1")
	mock.ExpectQuery(`INSERT INTO cart_lines`).
		WithArgs("cart-1", "p1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("line-1"))

	line, err = s.AddOrSet(context.Background(), id, "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, int64(50000), line.TotalCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrSetUsesSalePrice(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := &CartStore{DB: mock}
	expectProduct(mock, "p1", "Basil", 10000, ptr(int64(7500)), 20, true)
	expectFindCart(mock, "tok-1", "cart-1")
	mock.ExpectQuery(`INSERT INTO cart_lines`).
		WithArgs("cart-1", "p1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("line-1"))

	line, err := s.AddOrSet(context.Background(), SessionIdentity("tok-1"), "p1", 2)
	require.NoError(t, err)
	assert.True(t, line.OnSale)
	assert.Equal(t, int64(7500), line.UnitPriceCents)
	assert.Equal(t, int64(15000), line.TotalCents)
}

func TestAddOrSetRejectsBadQuantity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := &CartStore{DB: mock}
	for _, q := range []int{0, -1, 1000} {
		_, err := s.AddOrSet(context.Background(), SessionIdentity("tok"), "p1", q)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "quantity %d", q)
		assert.Contains(t, ve.Fields, "quantity")
	}
	// no queries are issued for out-of-range quantities
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrSetAdvisoryStockCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := &CartStore{DB: mock}

	expectProduct(mock, "p1", "Kale", 10000, nil, 2, true)
	_, err = s.AddOrSet(context.Background(), SessionIdentity("tok"), "p1", 3)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["quantity"][0], "available: 2")

	expectProduct(mock, "p2", "Basil", 10000, nil, 50, false)
	_, err = s.AddOrSet(context.Background(), SessionIdentity("tok"), "p2", 1)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "product_id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrSetUnknownProduct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM products WHERE id`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	s := &CartStore{DB: mock}
	_, err = s.AddOrSet(context.Background(), SessionIdentity("tok"), "nope", 1)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "product_id")
}

func TestGetOrCreateSurvivesInsertRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM carts WHERE session_token`).
		WithArgs("tok-1").
		WillReturnError(pgx.ErrNoRows)
	// ON CONFLICT DO NOTHING returns no row when another request won
	mock.ExpectQuery(`INSERT INTO carts`).
		WillReturnError(pgx.ErrNoRows)
	expectFindCart(mock, "tok-1", "cart-1")

	s := &CartStore{DB: mock}
	c, err := s.GetOrCreate(context.Background(), SessionIdentity("tok-1"))
	require.NoError(t, err)
	assert.Equal(t, "cart-1", c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLineZeroRemoves(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectFindCart(mock, "tok-1", "cart-1")
	mock.ExpectExec(`DELETE FROM cart_lines WHERE id`).
		WithArgs("line-1", "cart-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	s := &CartStore{DB: mock}
	require.NoError(t, s.UpdateLine(context.Background(), SessionIdentity("tok-1"), "line-1", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveLineIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := &CartStore{DB: mock}

	// deleting from an absent cart is a no-op
	mock.ExpectQuery(`FROM carts WHERE session_token`).
		WithArgs("tok-1").
		WillReturnError(pgx.ErrNoRows)
	require.NoError(t, s.RemoveLine(context.Background(), SessionIdentity("tok-1"), "line-1"))

	// deleting an already-deleted line succeeds too
	expectFindCart(mock, "tok-1", "cart-1")
	mock.ExpectExec(`DELETE FROM cart_lines WHERE id`).
		WithArgs("line-1", "cart-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, s.RemoveLine(context.Background(), SessionIdentity("tok-1"), "line-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectFindCart(mock, "tok-1", "cart-1")
	mock.ExpectQuery(`ORDER BY l.added_at`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "quantity", "product_id", "name", "price_cents", "sale_price_cents", "stock", "is_active",
		}).
			AddRow("line-1", 3, "p1", "Kale", int64(10000), nil, 5, true).
			AddRow("line-2", 2, "p2", "Basil", int64(5000), ptr(int64(4000)), 1, true))

	s := &CartStore{DB: mock}
	sum, err := s.Summary(context.Background(), SessionIdentity("tok-1"))
	require.NoError(t, err)
	require.Len(t, sum.Lines, 2)
	assert.False(t, sum.IsEmpty)
	assert.Equal(t, 5, sum.TotalItems)
	assert.Equal(t, int64(3*10000+2*4000), sum.TotalCents)

	// stock on the second line is stale-read advisory data
	assert.True(t, sum.Lines[0].IsAvailable)
	assert.False(t, sum.Lines[1].IsAvailable)
	assert.True(t, sum.Lines[1].OnSale)
}

func TestSummaryAbsentCartIsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM carts WHERE session_token`).
		WithArgs("tok-1").
		WillReturnError(pgx.ErrNoRows)

	s := &CartStore{DB: mock}
	sum, err := s.Summary(context.Background(), SessionIdentity("tok-1"))
	require.NoError(t, err)
	assert.True(t, sum.IsEmpty)
	assert.Empty(t, sum.Lines)
}
