package shop

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrCartNotFound   = errors.New("cart not found")
	ErrLineNotFound   = errors.New("cart line not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be canceled")
)

// ValidationError carries field-scoped messages, collected fully so a client
// can fix every problem in one round trip. Not retryable.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msgs := range e.Fields {
		parts = append(parts, f+": "+strings.Join(msgs, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// StockViolation names one offending product found during checkout
// validation under lock.
type StockViolation struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Inactive    bool   `json:"inactive"`
}

// StockError aggregates every violating cart line; the checkout fails as a
// whole. Retrying without changing the cart will fail again, but the client
// can re-offer an adjusted cart from the listed availability.
type StockError struct {
	Violations []StockViolation
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Inactive {
			parts = append(parts, fmt.Sprintf("%s: product inactive", v.ProductName))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", v.ProductName, v.Requested, v.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// ConflictError marks lock contention or stock raced away mid-checkout.
// The whole checkout is safe to retry.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return "checkout conflict (" + e.Reason + "): " + e.Err.Error()
	}
	return "checkout conflict: " + e.Reason
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IntegrityError wraps an unexpected storage constraint violation. Surfaced
// opaquely to clients, logged for operators.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string { return "storage integrity violation: " + e.Err.Error() }
func (e *IntegrityError) Unwrap() error { return e.Err }

// Postgres error codes that the checkout path classifies.
const (
	pgLockNotAvailable  = "55P03"
	pgSerializationFail = "40001"
	pgDeadlockDetected  = "40P01"
	pgIntegrityClass    = "23"
)

// classifyPgError maps driver errors onto the taxonomy: bounded lock waits
// and deadlocks become retryable conflicts, constraint violations become
// integrity errors, everything else passes through.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgLockNotAvailable:
		return &ConflictError{Reason: "lock wait timed out", Err: err}
	case pgErr.Code == pgSerializationFail, pgErr.Code == pgDeadlockDetected:
		return &ConflictError{Reason: "concurrent checkout", Err: err}
	case strings.HasPrefix(pgErr.Code, pgIntegrityClass):
		return &IntegrityError{Err: err}
	}
	return err
}

// Retryable reports whether the caller may safely retry the whole operation.
func Retryable(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
