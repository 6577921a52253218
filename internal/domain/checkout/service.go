package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// Materializer persists orders.
type Materializer interface {
	Materialize(ctx context.Context, items []order.Item, c order.Customer, opts order.MaterializeOptions) (*order.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error)
}

// checkoutTimeout bounds a shared checkout execution, which is detached from
// the cancellation of the caller that started it.
const checkoutTimeout = 30 * time.Second

// Config controls checkout behaviour.
type Config struct {
	// StrictPricing rejects checkouts whose prices moved since the items
	// were added unless the request accepts the new prices.
	StrictPricing bool
}

// Request is a checkout attempt for one cart session.
type Request struct {
	Session            string
	UserID             string
	Customer           order.Customer
	Notes              string
	IdempotencyKey     string
	AcceptPriceChanges bool
}

// Result is a committed order together with the price changes applied.
type Result struct {
	Order        *order.Order
	PriceChanges []PriceChange
	// Replayed is set when the order was created by an earlier request with
	// the same idempotency key.
	Replayed bool
}

// Service runs the checkout pipeline: read cart, reconcile, materialize,
// clear cart.
type Service struct {
	carts      cart.Store
	reconciler *Reconciler
	orders     Materializer
	cfg        Config

	inflight singleflight.Group

	tracer    trace.Tracer
	attempts  metric.Int64Counter
	latency   metric.Float64Histogram
	revenue   metric.Float64Counter
	priceDiff metric.Int64Counter
}

// NewService creates a checkout Service.
func NewService(
	carts cart.Store,
	products product.Repository,
	orders Materializer,
	cfg Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("storefront/checkout")

	attempts, err := meter.Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "attempts counter")
	}
	latency, err := meter.Float64Histogram("checkout.duration",
		metric.WithDescription("Checkout pipeline duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}
	revenue, err := meter.Float64Counter("checkout.revenue",
		metric.WithDescription("Total amount of committed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "revenue counter")
	}
	priceDiff, err := meter.Int64Counter("checkout.price_changes",
		metric.WithDescription("Cart lines re-priced at checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "price changes counter")
	}

	return &Service{
		carts:      carts,
		reconciler: NewReconciler(products),
		orders:     orders,
		cfg:        cfg,
		tracer:     tp.Tracer("storefront/checkout"),
		attempts:   attempts,
		latency:    latency,
		revenue:    revenue,
		priceDiff:  priceDiff,
	}, nil
}

// Checkout converts the session's cart into a pending order. Concurrent
// calls for the same session and idempotency key share a single execution.
// On any failure the cart is left untouched.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if req.Session == "" {
		return nil, cart.ErrInvalidSession
	}

	ctx, span := s.tracer.Start(ctx, "checkout.Checkout")
	defer span.End()
	start := time.Now()

	res, err := s.dedupe(ctx, req)

	outcome := outcomeOf(err)
	s.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	s.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("order.id", res.Order.ID),
		attribute.Bool("order.replayed", res.Replayed),
	)
	return res, nil
}

func (s *Service) dedupe(ctx context.Context, req Request) (*Result, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			return replay(existing, req)
		case !errors.Is(err, order.ErrNotFound):
			return nil, errors.Wrap(err, "find by idempotency key")
		}
	}

	v, err, shared := s.inflight.Do(req.Session+"\x00"+req.IdempotencyKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkoutTimeout)
		defer cancel()
		return s.checkout(fctx, req)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	if shared {
		zctx.From(ctx).Debug("Joined in-flight checkout",
			zap.String("order_id", res.Order.ID),
		)
	}
	return res, nil
}

func (s *Service) checkout(ctx context.Context, req Request) (*Result, error) {
	lg := zctx.From(ctx)

	c, err := s.carts.Read(ctx, req.Session)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}

	rec, err := s.reconciler.Reconcile(ctx, c)
	if err != nil {
		return nil, err
	}

	changes := rec.PriceChanges()
	if len(changes) > 0 {
		s.priceDiff.Add(ctx, int64(len(changes)))
		if s.cfg.StrictPricing && !req.AcceptPriceChanges {
			return nil, &PriceChangedError{Changes: changes}
		}
	}

	items := make([]order.Item, len(rec.Lines))
	for i, l := range rec.Lines {
		items[i] = order.Item{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
	}

	o, err := s.orders.Materialize(ctx, items, req.Customer, order.MaterializeOptions{
		UserID:         req.UserID,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
		CartSession:    req.Session,
	})
	if err != nil {
		var conflict *order.StockConflictError
		switch {
		case errors.As(err, &conflict):
			return nil, &InsufficientStockError{
				ProductID: conflict.ProductID,
				Name:      nameOf(rec, conflict.ProductID),
				Requested: conflict.Requested,
				Available: conflict.Available,
			}
		case errors.Is(err, order.ErrDuplicate):
			existing, ferr := s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if ferr != nil {
				return nil, errors.Wrap(ferr, "load duplicate order")
			}
			res, rerr := replay(existing, req)
			if rerr != nil {
				return nil, rerr
			}
			s.clearCart(ctx, req.Session, existing.ID)
			return res, nil
		default:
			return nil, err
		}
	}

	s.clearCart(ctx, req.Session, o.ID)
	s.revenue.Add(ctx, o.TotalAmount.InexactFloat64())
	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.Int("price_changes", len(changes)),
	)

	return &Result{Order: o, PriceChanges: changes}, nil
}

// replay returns the order an earlier request created with the same
// idempotency key. Orders placed from another cart session are never
// returned.
func replay(existing *order.Order, req Request) (*Result, error) {
	if existing.CartSession != req.Session {
		return nil, ErrIdempotencyKeyConflict
	}
	return &Result{Order: existing, Replayed: true}, nil
}

// clearCart empties the cart after a committed order. The order stands even
// if clearing fails.
func (s *Service) clearCart(ctx context.Context, session, orderID string) {
	if err := s.carts.Clear(ctx, session); err != nil {
		zctx.From(ctx).Warn("Clear cart after checkout",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func nameOf(rec *Reconciliation, productID string) string {
	for _, l := range rec.Lines {
		if l.ProductID == productID {
			return l.Name
		}
	}
	return productID
}

func outcomeOf(err error) string {
	var (
		unavailable *ProductUnavailableError
		stock       *InsufficientStockError
		price       *PriceChangedError
		persist     *order.PersistenceError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrIdempotencyKeyConflict):
		return "idempotency_conflict"
	case errors.As(err, &unavailable):
		return "product_unavailable"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &price):
		return "price_changed"
	case errors.As(err, &persist):
		return "persistence"
	default:
		return "error"
	}
}
