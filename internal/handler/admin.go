package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

type statusRequest struct {
	Status string `json:"status"`
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

type productRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	IsActive    *bool            `json:"is_active"`
	Category    string           `json:"category"`
	ImageURL    string           `json:"image_url"`
	ImageURLs   []string         `json:"image_urls"`
	Specs       product.Specs    `json:"specs"`
}

// ListAllOrders returns the most recent orders. ?limit= caps the result.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	orders, err := h.orders.ListAll(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderViews(orders))
}

// UpdateOrderStatus advances an order through the status machine.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	next, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(w, r, badRequest("unknown status "+strconv.Quote(req.Status)))
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	actor := p.UserID
	if actor == "" {
		actor = p.KeyID
	}
	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), next, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(o))
}

// SetProductStock overwrites the stock counter of a product.
func (h *Handler) SetProductStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Stock == nil {
		writeError(w, r, badRequest("stock is required"))
		return
	}
	p, err := h.products.SetStock(r.Context(), chi.URLParam(r, "productID"), *req.Stock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productView(*p))
}

// PutProduct creates the product or replaces every field of an existing one.
// Price and stock are required; products are active unless is_active is
// false.
func (h *Handler) PutProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Price == nil || req.Stock == nil {
		writeError(w, r, badRequest("price and stock are required"))
		return
	}
	p := product.Product{
		ID:          chi.URLParam(r, "productID"),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price.Round(2),
		Stock:       *req.Stock,
		IsActive:    req.IsActive == nil || *req.IsActive,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		ImageURLs:   req.ImageURLs,
		Specs:       req.Specs,
	}
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Upsert(r.Context(), []product.Product{p}); err != nil {
		writeError(w, r, errors.Wrap(err, "upsert product"))
		return
	}
	zctx.From(r.Context()).Info("Product saved",
		zap.String("product_id", p.ID),
		zap.String("price", p.Price.StringFixed(2)),
		zap.Bool("active", p.IsActive),
	)
	writeJSON(w, http.StatusOK, h.productView(p))
}

// DeactivateProduct hides a product from the catalog. The row is kept so
// existing orders still reference it; carts holding it fail checkout with
// product_unavailable.
func (h *Handler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	found, err := h.products.GetByIDs(r.Context(), []string{id})
	if err != nil {
		writeError(w, r, errors.Wrap(err, "get product"))
		return
	}
	if len(found) == 0 {
		writeError(w, r, product.ErrNotFound)
		return
	}
	p := found[0]
	if p.IsActive {
		p.IsActive = false
		if err := h.products.Upsert(r.Context(), []product.Product{p}); err != nil {
			writeError(w, r, errors.Wrap(err, "deactivate product"))
			return
		}
		zctx.From(r.Context()).Info("Product deactivated", zap.String("product_id", id))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns the admin overview.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.stats.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "dashboard"))
		return
	}
	writeJSON(w, http.StatusOK, newDashboardView(d))
}
