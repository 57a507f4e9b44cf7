package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// The daily sequence is computed as (orders already created today) + 1.
// Counting and inserting must happen in the same transaction, under an
// exclusive advisory lock, or two concurrent checkouts could draw the same
// number.
const orderNumberLockLabel = "order-number"

func allocateOrderNumber(ctx context.Context, tx pgx.Tx, prefix string, now time.Time) (string, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(orderNumberLockLabel)); err != nil {
		return "", classifyPgError(err)
	}

	day := StartOfDay(now)
	var created int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`,
		day, day.Add(24*time.Hour)).Scan(&created)
	if err != nil {
		return "", classifyPgError(err)
	}
	return FormatOrderNumber(prefix, day, created+1), nil
}

// FormatOrderNumber renders PREFIX-YYYYMMDD-NNNNN.
func FormatOrderNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, day.Format("20060102"), seq)
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
