package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/organicgreen/go-shop/internal/shop"
)

type CatalogService interface {
	ListActive(ctx context.Context) ([]shop.Product, error)
	Get(ctx context.Context, productID string) (shop.Product, error)
}

// CatalogHandler serves display reads; stock values here may be stale.
type CatalogHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	products, err := h.Catalog.ListActive(ctx)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	if products == nil {
		products = []shop.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
