// Package handler exposes the storefront over a JSON HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stats"
)

// ProductCatalog reads the catalog and applies admin edits to it.
type ProductCatalog interface {
	product.Repository
	// Upsert inserts products or replaces existing ones.
	Upsert(ctx context.Context, products []product.Product) error
}

// CartService mutates session carts.
type CartService interface {
	Get(ctx context.Context, session string) (cart.Cart, error)
	AddItem(ctx context.Context, session, productID string, quantity int) (cart.Cart, error)
	SetQuantity(ctx context.Context, session, productID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, session, productID string) (cart.Cart, error)
	Replace(ctx context.Context, session string, selections []cart.Selection) (cart.Cart, error)
	Clear(ctx context.Context, session string) error
}

// CheckoutService turns a cart into an order.
type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// OrderService reads and advances orders.
type OrderService interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	ListAll(ctx context.Context, limit int) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id string, next order.Status, actor string) (*order.Order, error)
	TrackAnonymous(ctx context.Context, id, email string) (*order.Order, error)
}

// StatsService builds the admin dashboard.
type StatsService interface {
	Dashboard(ctx context.Context) (*stats.Dashboard, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	ImageBaseURL string
	// SecureCookies marks the cart session cookie Secure.
	SecureCookies bool
}

// Handler serves the storefront API.
type Handler struct {
	products ProductCatalog
	carts    CartService
	checkout CheckoutService
	orders   OrderService
	stats    StatsService

	imageBaseURL  string
	secureCookies bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products ProductCatalog,
	carts CartService,
	checkout CheckoutService,
	orders OrderService,
	stats StatsService,
) *Handler {
	return &Handler{
		products:      products,
		carts:         carts,
		checkout:      checkout,
		orders:        orders,
		stats:         stats,
		imageBaseURL:  cfg.ImageBaseURL,
		secureCookies: cfg.SecureCookies,
	}
}

// Routes mounts the API under r. sec authenticates API keys; every route
// accepts anonymous callers unless it requires a principal or scope.
func (h *Handler) Routes(r chi.Router, sec *SecurityHandler) {
	r.Use(sec.Authenticate)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Put("/", h.ReplaceCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{productID}", h.UpdateCartItem)
		r.Delete("/items/{productID}", h.RemoveCartItem)
	})

	r.Post("/checkout", h.Checkout)

	r.Route("/orders", func(r chi.Router) {
		r.With(RequireAuth).Get("/", h.ListMyOrders)
		r.Get("/{orderID}", h.GetOrder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireScope(adminScope))
		r.Get("/orders", h.ListAllOrders)
		r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
		r.Put("/products/{productID}", h.PutProduct)
		r.Delete("/products/{productID}", h.DeactivateProduct)
		r.Put("/products/{productID}/stock", h.SetProductStock)
		r.Get("/stats", h.Dashboard)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, newAPIError(http.StatusNotFound, "not_found", "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, newAPIError(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"))
	})
}
