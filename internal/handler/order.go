package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
)

// ListMyOrders returns the caller's orders, newest first.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderViews(orders))
}

// GetOrder returns an order to its owner or an admin. Guests look up their
// order by passing the checkout email as ?email=. Orders the caller may not
// see are reported as not found.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "orderID")

	if email := r.URL.Query().Get("email"); email != "" {
		o, err := h.orders.TrackAnonymous(ctx, id, email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderView(o))
		return
	}

	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		writeError(w, r, order.ErrNotFound)
		return
	}
	o, err := h.orders.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.HasScope(adminScope) && (o.UserID == "" || o.UserID != p.UserID) {
		writeError(w, r, order.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(o))
}
