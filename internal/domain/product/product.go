package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or is not
// active.
var ErrNotFound = errors.New("product not found")

// ErrInvalidStock is returned when a stock update would make stock negative.
var ErrInvalidStock = errors.New("stock must not be negative")

// ErrInvalid is returned for a product record that cannot be stored.
var ErrInvalid = errors.New("invalid product")

// Product is the authoritative catalog record. Price and Stock read from the
// repository are the values checkout validates against.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	IsActive    bool
	Category    string
	ImageURL    string
	ImageURLs   []string
	Specs       Specs
}

// PrimaryImage returns the first gallery image, falling back to ImageURL.
func (p Product) PrimaryImage() string {
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return p.ImageURL
}

// Available reports whether the product can be put into a cart.
func (p Product) Available() bool {
	return p.IsActive && p.Stock > 0
}

// Validate checks the fields every stored product must have.
func (p Product) Validate() error {
	switch {
	case p.ID == "":
		return errors.Wrap(ErrInvalid, "missing id")
	case p.Name == "":
		return errors.Wrapf(ErrInvalid, "product %s: missing name", p.ID)
	case p.Price.IsNegative():
		return errors.Wrapf(ErrInvalid, "product %s: negative price", p.ID)
	case p.Stock < 0:
		return errors.Wrapf(ErrInvalid, "product %s: negative stock", p.ID)
	}
	return nil
}

// Repository defines catalog operations.
type Repository interface {
	// ListActive returns active products ordered by name.
	ListActive(ctx context.Context) ([]Product, error)
	// GetByID returns an active product or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns products matching any of the given IDs, including
	// inactive ones. Missing IDs are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// SetStock overwrites the stock counter of a product.
	SetStock(ctx context.Context, id string, stock int) (*Product, error)
}
