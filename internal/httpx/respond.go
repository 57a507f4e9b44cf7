package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/organicgreen/go-shop/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainError maps the domain error taxonomy onto HTTP. Stock and lock
// conflicts carry enough detail for the client to adjust and retry;
// integrity errors stay opaque.
func writeDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *shop.ValidationError
	var se *shop.StockError
	var ce *shop.ConflictError
	var ie *shop.IntegrityError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": ve.Fields})
	case errors.Is(err, shop.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": map[string][]string{"cart": {"cart is empty"}},
		})
	case errors.As(err, &se):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient_stock",
			"violations": se.Violations,
			"retryable":  false,
		})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "checkout_conflict",
			"retryable": true,
		})
	case errors.Is(err, shop.ErrNotCancellable):
		writeError(w, http.StatusBadRequest, "order can no longer be canceled")
	case errors.Is(err, shop.ErrOrderNotFound),
		errors.Is(err, shop.ErrLineNotFound),
		errors.Is(err, shop.ErrProductNotFound),
		errors.Is(err, shop.ErrCartNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ie):
		if log != nil {
			log.Error("integrity violation", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		if log != nil {
			log.Error("unhandled error", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
