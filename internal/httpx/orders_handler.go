package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/organicgreen/go-shop/internal/shop"
)

type CheckoutService interface {
	Checkout(ctx context.Context, id shop.Identity, in shop.CheckoutInput) (*shop.Order, error)
}

type OrderService interface {
	GetByNumber(ctx context.Context, id shop.Identity, number string) (*shop.Order, error)
	ListForIdentity(ctx context.Context, id shop.Identity) ([]shop.Order, error)
	Cancel(ctx context.Context, id shop.Identity, number string) (*shop.Order, error)
}

// StatusCache caches order status per owner; a cached entry is only served
// back to the identity it was stored for.
type StatusCache interface {
	GetStatus(ctx context.Context, owner, number string) (json.RawMessage, bool)
	SetStatus(ctx context.Context, owner, number, status string)
}

type OrdersHandler struct {
	Checkout CheckoutService
	Orders   OrderService
	Cache    StatusCache
	Log      *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{number}", h.getOrder)
	r.Get("/orders/{number}/status", h.getStatus)
	r.Post("/orders/{number}/cancel", h.cancelOrder)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var in shop.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	order, err := h.Checkout.Checkout(ctx, id, in)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}

	h.cacheStatus(ctx, id, order.OrderNumber, order.Status)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "order created",
		"order":   order,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListForIdentity(ctx, identityFrom(w, r))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	if orders == nil {
		orders = []shop.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Orders.GetByNumber(ctx, identityFrom(w, r), number)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// getStatus serves the hot path for order tracking through a short-TTL
// cache; a miss falls back to the identity-scoped store read and refills.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	if h.Cache != nil {
		if raw, ok := h.Cache.GetStatus(ctx, ownerKey(id), number); ok {
			writeJSON(w, http.StatusOK, raw)
			return
		}
	}

	order, err := h.Orders.GetByNumber(ctx, id, number)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	h.cacheStatus(ctx, id, order.OrderNumber, order.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": order.Status})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	order, err := h.Orders.Cancel(ctx, id, number)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	h.cacheStatus(ctx, id, order.OrderNumber, order.Status)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "order canceled",
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, id shop.Identity, number string, status shop.Status) {
	if h.Cache == nil {
		return
	}
	h.Cache.SetStatus(ctx, ownerKey(id), number, string(status))
}
