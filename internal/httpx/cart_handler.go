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

// CartService is the slice of CartStore the handler needs; tests plug in a
// fake.
type CartService interface {
	Summary(ctx context.Context, id shop.Identity) (shop.CartSummary, error)
	AddOrSet(ctx context.Context, id shop.Identity, productID string, quantity int) (shop.CartSummaryLine, error)
	UpdateLine(ctx context.Context, id shop.Identity, lineID string, quantity int) error
	RemoveLine(ctx context.Context, id shop.Identity, lineID string) error
	Clear(ctx context.Context, id shop.Identity) error
}

type CartMergeService interface {
	Merge(ctx context.Context, sessionToken, userID string) error
}

type CartHandler struct {
	Cart   CartService
	Merger CartMergeService
	Log    *zap.Logger
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.summary)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{lineID}", h.updateItem)
	r.Delete("/cart/items/{lineID}", h.removeItem)
	r.Delete("/cart", h.clear)
	r.Post("/cart/merge", h.merge)
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	line, err := h.Cart.AddOrSet(ctx, id, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": line})
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	if err := h.Cart.UpdateLine(ctx, id, lineID, req.Quantity); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	h.writeSummary(ctx, w, id)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	if err := h.Cart.RemoveLine(ctx, id, lineID); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	h.writeSummary(ctx, w, id)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := identityFrom(w, r)
	if err := h.Cart.Clear(ctx, id); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	h.writeSummary(ctx, w, id)
}

func (h *CartHandler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	h.writeSummary(ctx, w, identityFrom(w, r))
}

func (h *CartHandler) writeSummary(ctx context.Context, w http.ResponseWriter, id shop.Identity) {
	sum, err := h.Cart.Summary(ctx, id)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type mergeReq struct {
	SessionToken string `json:"session_token"`
}

// merge folds the caller's previous anonymous cart into their user cart,
// typically right after login.
func (h *CartHandler) merge(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req mergeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, "session_token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Merger.Merge(ctx, req.SessionToken, userID); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	h.writeSummary(ctx, w, shop.UserIdentity(userID))
}
