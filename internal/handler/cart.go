package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type replaceCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

// GetCart returns the priced cart. A client without a session sees an empty
// cart and no session is created.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	session, err := cartSession(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if session == "" {
		writeJSON(w, http.StatusOK, h.cartView("", cart.Cart{}))
		return
	}
	c, err := h.carts.Get(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView(session, c))
}

// AddCartItem adds a product to the cart, one unit unless a quantity is
// given.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, badRequest("product_id is required"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	session, err := h.ensureCartSession(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.AddItem(r.Context(), session, req.ProductID, quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView(session, c))
}

// ReplaceCart overwrites the cart with the given items. Clients use it to
// upload a cart they built before they had a session.
func (h *Handler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	var req replaceCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	selections := make([]cart.Selection, len(req.Items))
	for i, it := range req.Items {
		if it.ProductID == "" {
			writeError(w, r, badRequest("items["+strconv.Itoa(i)+"].product_id is required"))
			return
		}
		selections[i] = cart.Selection{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	h.mutateCart(w, r, func(session string) (cart.Cart, error) {
		return h.carts.Replace(r.Context(), session, selections)
	})
}

// UpdateCartItem sets the quantity of a line. Quantities below one are
// clamped to one.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.mutateCart(w, r, func(session string) (cart.Cart, error) {
		return h.carts.SetQuantity(r.Context(), session, chi.URLParam(r, "productID"), req.Quantity)
	})
}

// RemoveCartItem deletes a line. Removing an absent product succeeds.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(session string) (cart.Cart, error) {
		return h.carts.RemoveItem(r.Context(), session, chi.URLParam(r, "productID"))
	})
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, func(session string) (cart.Cart, error) {
		return cart.Cart{}, h.carts.Clear(r.Context(), session)
	})
}

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, fn func(session string) (cart.Cart, error)) {
	session, err := h.ensureCartSession(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := fn(session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView(session, c))
}
