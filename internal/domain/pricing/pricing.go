// Package pricing computes display totals for a cart.
//
// All amounts use the snapshot unit price stored on each cart line. These
// figures are estimates; the authoritative total is produced at checkout.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Pending marks an amount that is calculated at checkout.
const Pending = "pending"

// LineSummary is a priced cart line.
type LineSummary struct {
	cart.Line
	LineTotal decimal.Decimal
}

// Summary is the priced view of a cart.
type Summary struct {
	Lines     []LineSummary
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       string
	Shipping  string
	Total     decimal.Decimal
}

// LineTotal returns UnitPrice × Quantity.
func LineTotal(l cart.Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums the line totals of c. An empty cart yields zero.
func Subtotal(c cart.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(LineTotal(l))
	}
	return total
}

// Summarize prices every line of c. Tax and shipping are never estimated.
func Summarize(c cart.Cart) Summary {
	s := Summary{
		Lines:    make([]LineSummary, 0, len(c.Lines)),
		Subtotal: decimal.Zero,
		Tax:      Pending,
		Shipping: Pending,
	}
	for _, l := range c.Lines {
		lt := LineTotal(l)
		s.Lines = append(s.Lines, LineSummary{Line: l, LineTotal: lt})
		s.ItemCount += l.Quantity
		s.Subtotal = s.Subtotal.Add(lt)
	}
	s.Total = s.Subtotal
	return s
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
