package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/stats"
)

const (
	stockCountsSQL = `SELECT
			count(*),
			count(*) FILTER (WHERE stock > 0 AND stock <= $1),
			count(*) FILTER (WHERE stock <= 0)
		FROM products WHERE is_active`

	orderCountsSQL = `SELECT status, count(*) FROM orders GROUP BY status`

	completedRevenueSQL = `SELECT count(*), COALESCE(sum(total_amount), 0)
		FROM orders WHERE status = 'completed'`
)

var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository computes dashboard aggregates in PostgreSQL.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) StockCounts(ctx context.Context, lowThreshold int) (stats.StockCounts, error) {
	var c stats.StockCounts
	if err := r.pool.QueryRow(ctx, stockCountsSQL, lowThreshold).Scan(&c.Total, &c.LowStock, &c.OutOfStock); err != nil {
		return c, fmt.Errorf("counting stock: %w", err)
	}
	return c, nil
}

func (r *StatsRepository) OrderCounts(ctx context.Context) (map[order.Status]int, error) {
	rows, err := r.pool.Query(ctx, orderCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}
	defer rows.Close()

	out := make(map[order.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning order count: %w", err)
		}
		out[order.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}
	return out, nil
}

func (r *StatsRepository) CompletedRevenue(ctx context.Context) (stats.Revenue, error) {
	var rev stats.Revenue
	if err := r.pool.QueryRow(ctx, completedRevenueSQL).Scan(&rev.Orders, &rev.Amount); err != nil {
		return rev, fmt.Errorf("summing revenue: %w", err)
	}
	return rev, nil
}
