// Package stats computes admin dashboard aggregates.
package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/order"
)

// StockCounts groups active products by stock level.
type StockCounts struct {
	Total      int
	LowStock   int
	OutOfStock int
}

// Revenue sums completed orders.
type Revenue struct {
	Orders int
	Amount decimal.Decimal
}

// Repository provides the raw aggregates.
type Repository interface {
	StockCounts(ctx context.Context, lowThreshold int) (StockCounts, error)
	OrderCounts(ctx context.Context) (map[order.Status]int, error)
	CompletedRevenue(ctx context.Context) (Revenue, error)
}

// Dashboard is the admin overview.
type Dashboard struct {
	TotalProducts     int
	LowStock          int
	OutOfStock        int
	OrdersByStatus    map[order.Status]int
	PendingOrders     int
	CompletedOrders   int
	Revenue           decimal.Decimal
	AverageOrderValue decimal.Decimal
}

// Service builds the dashboard.
type Service struct {
	repo         Repository
	lowThreshold int
}

// NewService creates a stats Service. Products with stock in
// 1..lowThreshold count as low stock.
func NewService(repo Repository, lowThreshold int) *Service {
	return &Service{repo: repo, lowThreshold: lowThreshold}
}

// Dashboard runs the aggregate queries concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		stock   StockCounts
		byState map[order.Status]int
		revenue Revenue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stock, err = s.repo.StockCounts(gctx, s.lowThreshold)
		if err != nil {
			return fmt.Errorf("stock counts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		byState, err = s.repo.OrderCounts(gctx)
		if err != nil {
			return fmt.Errorf("order counts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		revenue, err = s.repo.CompletedRevenue(gctx)
		if err != nil {
			return fmt.Errorf("revenue: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalProducts:     stock.Total,
		LowStock:          stock.LowStock,
		OutOfStock:        stock.OutOfStock,
		OrdersByStatus:    byState,
		PendingOrders:     byState[order.StatusPending],
		CompletedOrders:   revenue.Orders,
		Revenue:           revenue.Amount.Round(2),
		AverageOrderValue: decimal.Zero,
	}
	if revenue.Orders > 0 {
		d.AverageOrderValue = revenue.Amount.Div(decimal.NewFromInt(int64(revenue.Orders))).Round(2)
	}
	return d, nil
}
