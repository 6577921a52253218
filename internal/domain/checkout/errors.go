package checkout

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCart is returned when checking out a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrIdempotencyKeyConflict is returned when the idempotency key already
	// belongs to an order placed from another cart session.
	ErrIdempotencyKeyConflict = errors.New("idempotency key was used by another checkout")
)

// ProductUnavailableError indicates a cart line refers to a product that no
// longer exists or is inactive. Name is the snapshot name from the cart.
type ProductUnavailableError struct {
	ProductID string
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %q is no longer available", e.Name)
}

// InsufficientStockError indicates the product cannot cover the requested
// quantity.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Name, e.Requested, e.Available)
}

// PriceChange describes a line whose authoritative price differs from the
// price shown in the cart.
type PriceChange struct {
	ProductID string
	Name      string
	Old       decimal.Decimal
	New       decimal.Decimal
}

// PriceChangedError is returned in strict pricing mode when prices moved and
// the caller did not accept the new prices.
type PriceChangedError struct {
	Changes []PriceChange
}

func (e *PriceChangedError) Error() string {
	names := make([]string, len(e.Changes))
	for i, c := range e.Changes {
		names[i] = fmt.Sprintf("%q %s -> %s", c.Name, c.Old.StringFixed(2), c.New.StringFixed(2))
	}
	return "prices changed: " + strings.Join(names, ", ")
}
