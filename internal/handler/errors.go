package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
)

// apiError is the JSON error envelope of every non-2xx response.
type apiError struct {
	Code    int            `json:"code"`
	Kind    string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

func newAPIError(code int, kind, message string) *apiError {
	return &apiError{Code: code, Kind: kind, Message: message}
}

func badRequest(message string) *apiError {
	return newAPIError(http.StatusBadRequest, "invalid_request", message)
}

// mapError converts domain errors to API errors. Unknown errors map to 500
// and are reported as unexpected.
func mapError(err error) (*apiError, bool) {
	var (
		api         *apiError
		unavailable *checkout.ProductUnavailableError
		stock       *checkout.InsufficientStockError
		price       *checkout.PriceChangedError
		customer    *order.InvalidCustomerError
		persist     *order.PersistenceError
	)
	switch {
	case errors.As(err, &api):
		return api, true
	case errors.As(err, &unavailable):
		e := newAPIError(http.StatusUnprocessableEntity, "product_unavailable", unavailable.Error())
		e.Details = map[string]any{"product_id": unavailable.ProductID, "name": unavailable.Name}
		return e, true
	case errors.As(err, &stock):
		e := newAPIError(http.StatusConflict, "insufficient_stock", stock.Error())
		e.Details = map[string]any{
			"product_id": stock.ProductID,
			"name":       stock.Name,
			"requested":  stock.Requested,
			"available":  stock.Available,
		}
		return e, true
	case errors.As(err, &price):
		changes := make([]priceChangeView, len(price.Changes))
		for i, c := range price.Changes {
			changes[i] = newPriceChangeView(c)
		}
		e := newAPIError(http.StatusConflict, "price_changed", "prices changed since the items were added; accept the new prices to continue")
		e.Details = map[string]any{"changes": changes}
		return e, true
	case errors.Is(err, checkout.ErrEmptyCart):
		return newAPIError(http.StatusUnprocessableEntity, "empty_cart", "cart is empty"), true
	case errors.Is(err, checkout.ErrIdempotencyKeyConflict):
		return newAPIError(http.StatusConflict, "idempotency_key_conflict", "idempotency key was already used by another checkout"), true
	case errors.As(err, &customer):
		e := newAPIError(http.StatusBadRequest, "invalid_customer", customer.Error())
		e.Details = map[string]any{"field": customer.Field}
		return e, true
	case errors.Is(err, order.ErrEmptyItems), errors.Is(err, order.ErrInvalidQuantity):
		return badRequest(err.Error()), true
	case errors.As(err, &persist):
		return newAPIError(http.StatusServiceUnavailable, "retryable", "order could not be saved, please retry"), false
	case errors.Is(err, order.ErrInvalidTransition):
		return newAPIError(http.StatusConflict, "invalid_transition", "order status cannot change that way"), true
	case errors.Is(err, order.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", "order not found"), true
	case errors.Is(err, product.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", "product not found"), true
	case errors.Is(err, product.ErrInvalidStock), errors.Is(err, product.ErrInvalid):
		return badRequest(err.Error()), true
	case errors.Is(err, cart.ErrConflict):
		return newAPIError(http.StatusConflict, "conflict", "cart was modified concurrently, please retry"), true
	case errors.Is(err, cart.ErrOutOfStock):
		return newAPIError(http.StatusConflict, "out_of_stock", "product is out of stock"), true
	case errors.Is(err, cart.ErrInvalidSession):
		return newAPIError(http.StatusBadRequest, "invalid_session", "cart session is missing or invalid"), true
	default:
		return newAPIError(http.StatusInternalServerError, "internal", "internal server error"), false
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	api, expected := mapError(err)
	if !expected {
		zctx.From(r.Context()).Error("Request failed",
			zap.Int("status", api.Code),
			zap.Error(err),
		)
	}
	if api.Code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, api.Code, api)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

type priceChangeView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	OldPrice  string `json:"old_price"`
	NewPrice  string `json:"new_price"`
}

func newPriceChangeView(c checkout.PriceChange) priceChangeView {
	return priceChangeView{
		ProductID: c.ProductID,
		Name:      c.Name,
		OldPrice:  pricing.Format(c.Old),
		NewPrice:  pricing.Format(c.New),
	}
}
