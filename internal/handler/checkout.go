package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 255
)

type checkoutRequest struct {
	Customer struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Phone           string `json:"phone"`
		ShippingAddress string `json:"shipping_address"`
	} `json:"customer"`
	Notes              string `json:"notes"`
	AcceptPriceChanges bool   `json:"accept_price_changes"`
}

type checkoutResponse struct {
	Order        orderView         `json:"order"`
	PriceChanges []priceChangeView `json:"price_changes"`
}

// Checkout places an order for the session's cart. A repeated
// Idempotency-Key returns the original order with 200 instead of 201.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	session, err := cartSession(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if session == "" {
		writeError(w, r, checkout.ErrEmptyCart)
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if len(key) > maxIdempotencyKey {
		writeError(w, r, badRequest("Idempotency-Key is too long"))
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var userID string
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		userID = p.UserID
	}

	res, err := h.checkout.Checkout(r.Context(), checkout.Request{
		Session: session,
		UserID:  userID,
		Customer: order.Customer{
			Name:            req.Customer.Name,
			Email:           req.Customer.Email,
			Phone:           req.Customer.Phone,
			ShippingAddress: req.Customer.ShippingAddress,
		},
		Notes:              req.Notes,
		IdempotencyKey:     key,
		AcceptPriceChanges: req.AcceptPriceChanges,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	changes := make([]priceChangeView, len(res.PriceChanges))
	for i, c := range res.PriceChanges {
		changes[i] = newPriceChangeView(c)
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
		w.Header().Set(replayedHeader, "true")
	}
	writeJSON(w, status, checkoutResponse{Order: newOrderView(res.Order), PriceChanges: changes})
}
