package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const orderColumns = `id::text, COALESCE(user_id, ''), customer_name, customer_email, customer_phone,
	shipping_address, status, total_amount, notes, COALESCE(idempotency_key, ''), cart_session,
	created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (
			id, user_id, customer_name, customer_email, customer_phone, shipping_address,
			status, total_amount, notes, idempotency_key, cart_session, created_at, updated_at
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)`

	insertOrderItemSQL = `INSERT INTO order_items (
			order_id, position, product_id, product_name, quantity, unit_price, subtotal
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// Decrements stock only if enough is left; zero rows affected means the
	// product was sold out or deactivated since reconciliation.
	reserveStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2 AND is_active`

	currentStockSQL = `SELECT stock FROM products WHERE id = $1 AND is_active`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByKeySQL = `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC, id LIMIT $1`

	listOrderItemsSQL = `SELECT order_id::text, product_id, product_name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	idempotencyConstraint = "orders_idempotency_key_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order header and items and reserves stock for every
// item in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
			o.Customer.ShippingAddress, string(o.Status), o.TotalAmount, o.Notes,
			o.IdempotencyKey, o.CartSession, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, idempotencyConstraint) {
				return order.ErrDuplicate
			}
			return fmt.Errorf("inserting order: %w", err)
		}

		for i, it := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal,
			); err != nil {
				return fmt.Errorf("inserting order item %q: %w", it.ProductID, err)
			}

			tag, err := tx.Exec(ctx, reserveStockSQL, it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("reserving stock for %q: %w", it.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return stockConflict(ctx, tx, it)
			}
		}
		return nil
	})
}

func stockConflict(ctx context.Context, tx pgx.Tx, it order.Item) error {
	var available int
	if err := tx.QueryRow(ctx, currentStockSQL, it.ProductID).Scan(&available); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("reading stock of %q: %w", it.ProductID, err)
		}
		available = 0
	}
	return &order.StockConflictError{
		ProductID: it.ProductID,
		Requested: it.Quantity,
		Available: available,
	}
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// FindByIdempotencyKey returns the order created with key.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByKeySQL, key)
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

// ListAll returns up to limit orders, newest first.
func (r *OrderRepository) ListAll(ctx context.Context, limit int) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL, limit)
}

// UpdateStatus sets the status if it is still from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("updating order %q: %w", id, err)
		}
		var exists bool
		if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking order %q: %w", id, err)
		}
		if exists {
			return nil, fmt.Errorf("order %s changed concurrently: %w", id, order.ErrInvalidTransition)
		}
		return nil, order.ErrNotFound
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, arg any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	ptrs := make([]*order.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all orders with a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&o.Customer.ShippingAddress, &status, &o.TotalAmount, &o.Notes,
		&o.IdempotencyKey, &o.CartSession, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}
