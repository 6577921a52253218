package order

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Publisher announces order lifecycle events to external collaborators.
// Delivery is best effort; failures never undo a committed order.
type Publisher interface {
	OrderCreated(ctx context.Context, o *Order) error
	StatusChanged(ctx context.Context, o *Order, from Status) error
}

// MaterializeOptions carries optional order attributes.
type MaterializeOptions struct {
	UserID         string
	Notes          string
	IdempotencyKey string
	CartSession    string
}

// Service encapsulates order creation and lifecycle management.
type Service struct {
	orders Repository
	events Publisher
	now    func() time.Time
}

// NewService creates an order Service. A nil publisher disables events.
func NewService(orders Repository, events Publisher) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		orders: orders,
		events: events,
		now:    time.Now,
	}
}

// Materialize builds a pending order from priced items and persists it with
// its items as a single unit. Item subtotals and the order total are
// computed here from UnitPrice and Quantity.
func (s *Service) Materialize(ctx context.Context, items []Item, c Customer, opts MaterializeOptions) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	c, err := normalizeCustomer(c)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	built := make([]Item, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, ErrInvalidQuantity)
		}
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(it.Subtotal)
		built[i] = it
	}

	now := s.now().UTC()
	o := &Order{
		ID:             uuid.New().String(),
		UserID:         opts.UserID,
		Customer:       c,
		Status:         StatusPending,
		TotalAmount:    total.Round(2),
		Notes:          strings.TrimSpace(opts.Notes),
		IdempotencyKey: opts.IdempotencyKey,
		CartSession:    opts.CartSession,
		Items:          built,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		var conflict *StockConflictError
		if errors.As(err, &conflict) || errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "create order", Err: err}
	}

	if err := s.events.OrderCreated(ctx, o); err != nil {
		zctx.From(ctx).Warn("Publish order created",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}

// FindByIdempotencyKey returns the order created with key.
func (s *Service) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	return s.orders.FindByIdempotencyKey(ctx, key)
}

// Get returns the order with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.orders.Get(ctx, id)
}

// ListByUser returns the orders placed by userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns the most recent orders. Non-positive limits use the default.
func (s *Service) ListAll(ctx context.Context, limit int) ([]Order, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return s.orders.ListAll(ctx, limit)
}

// UpdateStatus moves an order to next if the status machine allows it.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status, actor string) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if !from.CanTransitionTo(next) {
		return nil, fmt.Errorf("%s -> %s: %w", from, next, ErrInvalidTransition)
	}

	updated, err := s.orders.UpdateStatus(ctx, id, from, next)
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("actor", actor),
	)
	if err := s.events.StatusChanged(ctx, updated, from); err != nil {
		zctx.From(ctx).Warn("Publish status change",
			zap.String("order_id", id),
			zap.Error(err),
		)
	}
	return updated, nil
}

// TrackAnonymous returns a guest order when email matches the one captured
// at checkout. A mismatch is reported as ErrNotFound.
func (s *Service) TrackAnonymous(ctx context.Context, id, email string) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if email == "" || !strings.EqualFold(strings.TrimSpace(email), o.Customer.Email) {
		return nil, ErrNotFound
	}
	return o, nil
}

func normalizeCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.ShippingAddress = strings.TrimSpace(c.ShippingAddress)

	if c.Name == "" {
		return c, &InvalidCustomerError{Field: "name", Reason: "is required"}
	}
	if c.Email == "" {
		return c, &InvalidCustomerError{Field: "email", Reason: "is required"}
	}
	if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
		return c, &InvalidCustomerError{Field: "email", Reason: "is invalid"}
	}
	if c.ShippingAddress == "" {
		return c, &InvalidCustomerError{Field: "shipping_address", Reason: "is required"}
	}
	return c, nil
}

type nopPublisher struct{}

func (nopPublisher) OrderCreated(context.Context, *Order) error { return nil }

func (nopPublisher) StatusChanged(context.Context, *Order, Status) error { return nil }
