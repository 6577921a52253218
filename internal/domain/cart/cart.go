// Package cart holds the per-session shopping cart and the pure operations
// that mutate it.
//
// A Cart is a value: mutators change the receiver in memory and never fail.
// Durability is the job of a Store; Service combines the two.
package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Line is a single product selection. Name, UnitPrice and ImageURL are
// snapshots taken when the product was added and are for display only.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Cart is an ordered list of lines with at most one line per product.
type Cart struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineFor snapshots the display fields of p into a new line.
func LineFor(p product.Product, quantity int) Line {
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageURL:  p.PrimaryImage(),
		Quantity:  clamp(quantity),
	}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Add merges line into the cart. An existing line for the same product has
// its quantity increased and keeps its original snapshot; otherwise line is
// appended.
func (c *Cart) Add(line Line) {
	qty := clamp(line.Quantity)
	if i := c.index(line.ProductID); i >= 0 {
		c.Lines[i].Quantity += qty
		return
	}
	line.Quantity = qty
	c.Lines = append(c.Lines, line)
}

// SetQuantity sets the quantity of the line for productID. Quantities below
// one are stored as one; removal is a separate operation.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity = clamp(quantity)
	}
}

// Remove deletes the line for productID if present.
func (c *Cart) Remove(productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.Lines = nil
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	out := Cart{UpdatedAt: c.UpdatedAt}
	if c.Lines != nil {
		out.Lines = make([]Line, len(c.Lines))
		copy(out.Lines, c.Lines)
	}
	return out
}

func (c *Cart) index(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func clamp(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}
