package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      *bool           `json:"is_active"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	ImageURLs   []string        `json:"image_urls"`
	Specs       product.Specs   `json:"specs"`
}

func (p productJSON) toDomain() (product.Product, error) {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	dp := product.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		IsActive:    active,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		ImageURLs:   p.ImageURLs,
		Specs:       p.Specs,
	}
	if err := dp.Validate(); err != nil {
		return product.Product{}, err
	}
	return dp, nil
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
		apiKeyUser   string
		apiKeyScopes string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzip-compressed (.gz)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env); skipped when empty")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "admin", "user ID the seeded API key authenticates as")
	flag.StringVar(&apiKeyScopes, "api-key-scopes", auth.ScopeAdmin, "comma-separated scopes of the seeded API key")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	key := auth.APIKeyInfo{
		KeyHash: auth.HashKey([]byte(apiKeyPepper), apiKey),
		Name:    "Seeded " + apiKeyUser + " key",
		UserID:  apiKeyUser,
		Scopes:  splitScopes(apiKeyScopes),
	}
	if err := run(ctx, databaseURL, productsFile, apiKey != "", key); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, seedKey bool, key auth.APIKeyInfo) error {
	slog.Info("running migrations")
	if err := postgres.RunMigrations(databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "load products")
	}
	slog.Info("upserting products", slog.Int("count", len(products)))
	if err := postgres.NewProductRepository(pool).Upsert(ctx, products); err != nil {
		return errors.Wrap(err, "upsert products")
	}

	if !seedKey {
		slog.Info("no API key given, skipping")
		return nil
	}
	id, err := postgres.NewAPIKeyRepository(pool).Save(ctx, key)
	if err != nil {
		return errors.Wrap(err, "seed api key")
	}
	slog.Info("upserted API key",
		slog.String("id", id),
		slog.String("user_id", key.UserID),
		slog.String("scopes", strings.Join(key.Scopes, ",")),
	)
	return nil
}

func loadProducts(path string) ([]product.Product, error) {
	slog.Info("reading products file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return decodeProducts(r)
}

func decodeProducts(r io.Reader) ([]product.Product, error) {
	var raw []productJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	seen := make(map[string]struct{}, len(raw))
	products := make([]product.Product, 0, len(raw))
	for _, p := range raw {
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Errorf("duplicate product %s", p.ID)
		}
		seen[p.ID] = struct{}{}

		dp, err := p.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, dp)
	}
	return products, nil
}

func splitScopes(s string) []string {
	var scopes []string
	for _, sc := range strings.Split(s, ",") {
		if sc = strings.TrimSpace(sc); sc != "" {
			scopes = append(scopes, sc)
		}
	}
	return scopes
}
