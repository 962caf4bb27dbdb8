package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/catalog"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

// ProductSource is the read side of the catalog.
type ProductSource interface {
	Products(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id string) (model.Product, error)
}

// CatalogHandler serves read-only catalog requests.
type CatalogHandler struct {
	source ProductSource
	logger *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler instance.
func NewCatalogHandler(source ProductSource, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		source: source,
		logger: logger,
	}
}

// RegisterRoutes registers the catalog routes with the router.
func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", healthCheck(h.logger)).Methods(http.MethodGet)
	router.HandleFunc("/api/products", h.ListProducts).Methods(http.MethodGet)
	router.HandleFunc("/api/products/{id}", h.GetProduct).Methods(http.MethodGet)
}

// ListProducts handles GET /api/products requests.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.source.Products(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve products")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{id} requests.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	product, err := h.source.Get(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	case err != nil:
		h.logger.Error("failed to get product", zap.String("id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve product")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, product)
}

// writeError writes an error response with the given status code and message.
func (h *CatalogHandler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, h.logger, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
