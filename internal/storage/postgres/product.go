package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const productColumns = `id, name, description, price, stock, is_active, category, image_url, image_urls, specs`

const (
	listActiveProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE is_active ORDER BY name, id`

	getActiveProductSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1 AND is_active`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1)`

	setProductStockSQL = `UPDATE products SET stock = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			image_urls = EXCLUDED.image_urls,
			specs = EXCLUDED.specs,
			updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListActive returns active products ordered by name.
func (r *ProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listActiveProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single active product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getActiveProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs, active or not.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// SetStock overwrites the stock counter of a product.
func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) (*product.Product, error) {
	if stock < 0 {
		return nil, product.ErrInvalidStock
	}
	rows, err := r.pool.Query(ctx, setProductStockSQL, id, stock)
	if err != nil {
		return nil, fmt.Errorf("setting stock of %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("setting stock of %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts products or replaces existing ones in a single batch.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		imageURLs := p.ImageURLs
		if imageURLs == nil {
			imageURLs = []string{}
		}
		specs := p.Specs
		if specs == nil {
			specs = product.Specs{}
		}
		batch.Queue(upsertProductSQL,
			p.ID, p.Name, p.Description, p.Price, p.Stock, p.IsActive,
			p.Category, p.ImageURL, imageURLs, specs,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting products: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.IsActive,
		&p.Category, &p.ImageURL, &p.ImageURLs, &p.Specs,
	)
	return p, err
}
