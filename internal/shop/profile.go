package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ProfileRepo resolves stored contact data for authenticated users, used as
// the fallback when checkout input omits name or phone.
type ProfileRepo struct{ DB DBPool }

type ProfileContact struct {
	FullName string
	Phone    string
}

func (r *ProfileRepo) ContactFor(ctx context.Context, userID string) (ProfileContact, error) {
	var first, last, phone string
	err := r.DB.QueryRow(ctx, `SELECT first_name, last_name, phone FROM users WHERE id=$1`, userID).
		Scan(&first, &last, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProfileContact{}, nil
	}
	if err != nil {
		return ProfileContact{}, err
	}
	return ProfileContact{
		FullName: strings.TrimSpace(first + " " + last),
		Phone:    phone,
	}, nil
}
