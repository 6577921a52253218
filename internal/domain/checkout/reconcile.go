// Package checkout turns a cart into an order.
//
// Cart contents are untrusted: the Reconciler validates every line against
// the product catalog and re-prices it before anything is written. The
// Service runs the full pipeline and clears the cart only after the order
// is committed.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// Line is a cart line validated against the catalog.
type Line struct {
	ProductID string
	Name      string
	Quantity  int
	// UnitPrice is the authoritative catalog price.
	UnitPrice decimal.Decimal
	// SnapshotPrice is the price the cart displayed.
	SnapshotPrice decimal.Decimal
	Subtotal      decimal.Decimal
}

// PriceChanged reports whether the catalog price differs from the snapshot.
func (l Line) PriceChanged() bool {
	return !l.UnitPrice.Equal(l.SnapshotPrice)
}

// Reconciliation is the validated, re-priced form of a cart.
type Reconciliation struct {
	Lines []Line
	Total decimal.Decimal
}

// PriceChanges lists the lines whose price moved since they were added.
func (r *Reconciliation) PriceChanges() []PriceChange {
	var out []PriceChange
	for _, l := range r.Lines {
		if l.PriceChanged() {
			out = append(out, PriceChange{
				ProductID: l.ProductID,
				Name:      l.Name,
				Old:       l.SnapshotPrice,
				New:       l.UnitPrice,
			})
		}
	}
	return out
}

// Reconciler validates carts against authoritative product data.
type Reconciler struct {
	products product.Repository
}

// NewReconciler creates a Reconciler backed by the product catalog.
func NewReconciler(products product.Repository) *Reconciler {
	return &Reconciler{products: products}
}

// Reconcile fetches every product in c in one batch and checks availability
// and stock line by line in cart order. The first failing line aborts the
// whole reconciliation.
func (r *Reconciler) Reconcile(ctx context.Context, c cart.Cart) (*Reconciliation, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	fetched, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	rec := &Reconciliation{
		Lines: make([]Line, 0, len(c.Lines)),
		Total: decimal.Zero,
	}
	for _, l := range c.Lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.IsActive {
			return nil, &ProductUnavailableError{ProductID: l.ProductID, Name: l.Name}
		}
		if p.Stock < l.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: l.Quantity,
				Available: max(p.Stock, 0),
			}
		}

		subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		rec.Lines = append(rec.Lines, Line{
			ProductID:     p.ID,
			Name:          p.Name,
			Quantity:      l.Quantity,
			UnitPrice:     p.Price,
			SnapshotPrice: l.UnitPrice,
			Subtotal:      subtotal,
		})
		rec.Total = rec.Total.Add(subtotal)
	}
	rec.Total = rec.Total.Round(2)

	return rec, nil
}
