package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusReady, StatusCancelled},
	StatusReady:      {StatusCompleted},
}

// ParseStatus validates s as a known status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusReady, StatusCompleted, StatusCancelled:
		return st, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Customer holds the contact and delivery details captured at checkout.
type Customer struct {
	Name            string
	Email           string
	Phone           string
	ShippingAddress string
}

// Item is a persisted order line. UnitPrice is the authoritative price at
// order time and Subtotal = UnitPrice × Quantity.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Order is an order header with its items. TotalAmount equals the sum of the
// item subtotals at creation and is never recomputed. CartSession is the cart
// the order was placed from; an idempotency key is only honoured for it.
type Order struct {
	ID             string
	UserID         string
	Customer       Customer
	Status         Status
	TotalAmount    decimal.Decimal
	Notes          string
	IdempotencyKey string
	CartSession    string
	Items          []Item
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemCount returns the total quantity across all items.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the header, the items and the stock decrement for each
	// item as one unit. It returns *StockConflictError when a product no
	// longer has enough stock and ErrDuplicate when the idempotency key is
	// already used.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListAll returns up to limit orders, newest first.
	ListAll(ctx context.Context, limit int) ([]Order, error)
	// UpdateStatus moves the order from status from to status to. It
	// returns ErrInvalidTransition if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error)
}
