package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stats"
)

// --- Mock implementations ---

type mockProducts struct {
	products map[string]product.Product
	upserted []product.Product
}

func (m *mockProducts) ListActive(context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProducts) Upsert(_ context.Context, products []product.Product) error {
	for _, p := range products {
		m.products[p.ID] = p
		m.upserted = append(m.upserted, p)
	}
	return nil
}

func (m *mockProducts) SetStock(_ context.Context, id string, stock int) (*product.Product, error) {
	if stock < 0 {
		return nil, product.ErrInvalidStock
	}
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p.Stock = stock
	m.products[id] = p
	return &p, nil
}

type mockCarts struct {
	carts  map[string]cart.Cart
	addErr error
	added  []int
}

func (m *mockCarts) Get(_ context.Context, session string) (cart.Cart, error) {
	return m.carts[session], nil
}

func (m *mockCarts) AddItem(_ context.Context, session, productID string, quantity int) (cart.Cart, error) {
	if m.addErr != nil {
		return cart.Cart{}, m.addErr
	}
	m.added = append(m.added, quantity)
	c := m.carts[session]
	c.Add(cart.Line{ProductID: productID, Name: productID, UnitPrice: decimal.RequireFromString("2.50"), Quantity: quantity})
	m.carts[session] = c
	return c, nil
}

func (m *mockCarts) SetQuantity(_ context.Context, session, productID string, quantity int) (cart.Cart, error) {
	c := m.carts[session]
	c.SetQuantity(productID, quantity)
	m.carts[session] = c
	return c, nil
}

func (m *mockCarts) RemoveItem(_ context.Context, session, productID string) (cart.Cart, error) {
	c := m.carts[session]
	c.Remove(productID)
	m.carts[session] = c
	return c, nil
}

func (m *mockCarts) Replace(_ context.Context, session string, selections []cart.Selection) (cart.Cart, error) {
	if m.addErr != nil {
		return cart.Cart{}, m.addErr
	}
	var c cart.Cart
	for _, s := range selections {
		c.Add(cart.Line{ProductID: s.ProductID, Name: s.ProductID, UnitPrice: decimal.RequireFromString("2.50"), Quantity: s.Quantity})
	}
	m.carts[session] = c
	return c, nil
}

func (m *mockCarts) Clear(_ context.Context, session string) error {
	delete(m.carts, session)
	return nil
}

type mockCheckout struct {
	res  *checkout.Result
	err  error
	last checkout.Request
}

func (m *mockCheckout) Checkout(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	m.last = req
	return m.res, m.err
}

type mockOrders struct {
	orders map[string]*order.Order
	listed int
	err    error
}

func (m *mockOrders) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrders) ListAll(_ context.Context, limit int) ([]order.Order, error) {
	m.listed = limit
	return nil, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, id string, next order.Status, _ string) (*order.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Status = next
	return o, nil
}

func (m *mockOrders) TrackAnonymous(ctx context.Context, id, email string) (*order.Order, error) {
	o, err := m.Get(ctx, id)
	if err != nil || o.Customer.Email != email {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type mockStats struct{}

func (mockStats) Dashboard(context.Context) (*stats.Dashboard, error) {
	return &stats.Dashboard{
		TotalProducts:     3,
		OrdersByStatus:    map[order.Status]int{order.StatusPending: 2},
		PendingOrders:     2,
		Revenue:           decimal.RequireFromString("99.5"),
		AverageOrderValue: decimal.RequireFromString("49.75"),
	}, nil
}

type mockAPIKeys struct {
	keys map[string]auth.APIKeyInfo
}

func (m *mockAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.keys[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return &info, nil
}

// --- Test fixtures ---

const (
	session  = "8d3c4f4e-1b7a-4d6e-9b2f-3f1c2a4b5c6d"
	orderID  = "0b6f3c1e-8a4e-4f55-9d4b-2f0f9f2f7a10"
	adminKey = "admin-secret"
	userKey  = "user-secret"
)

var pepper = []byte("pepper")

type fixture struct {
	products *mockProducts
	carts    *mockCarts
	checkout *mockCheckout
	orders   *mockOrders
	server   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products: &mockProducts{products: map[string]product.Product{
			"kettle": {
				ID: "kettle", Name: "Kettle", Price: decimal.RequireFromString("24.5"),
				Stock: 4, IsActive: true, ImageURLs: []string{"kettle.jpg"},
				Specs: product.Specs{{Key: "voltage", Value: "230V"}},
			},
			"hidden": {ID: "hidden", Name: "Hidden", Price: decimal.NewFromInt(1), IsActive: false},
		}},
		carts:    &mockCarts{carts: map[string]cart.Cart{}},
		checkout: &mockCheckout{},
		orders: &mockOrders{orders: map[string]*order.Order{
			orderID: {
				ID:          orderID,
				UserID:      "u-1",
				Status:      order.StatusPending,
				Customer:    order.Customer{Name: "Asha", Email: "asha@example.com"},
				TotalAmount: decimal.RequireFromString("49"),
				Items: []order.Item{{
					ProductID: "kettle", ProductName: "Kettle", Quantity: 2,
					UnitPrice: decimal.RequireFromString("24.5"), Subtotal: decimal.RequireFromString("49"),
				}},
			},
		}},
	}
	keys := &mockAPIKeys{keys: map[string]auth.APIKeyInfo{
		auth.HashKey(pepper, adminKey): {ID: "k-admin", KeyHash: auth.HashKey(pepper, adminKey), UserID: "u-admin", Scopes: []string{auth.ScopeAdmin}},
		auth.HashKey(pepper, userKey):  {ID: "k-user", KeyHash: auth.HashKey(pepper, userKey), UserID: "u-1"},
	}}

	h := NewHandler(HandlerConfig{ImageBaseURL: "https://cdn.example.com/img/"},
		f.products, f.carts, f.checkout, f.orders, mockStats{})
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.Routes(r, NewSecurityHandler(keys, pepper))
	})
	f.server = r
	return f
}

type call struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

func (f *fixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func withSession(extra ...string) map[string]string {
	h := map[string]string{sessionHeader: session}
	for i := 0; i+1 < len(extra); i += 2 {
		h[extra[i]] = extra[i+1]
	}
	return h
}

// --- Tests ---

func TestProducts(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, call{method: http.MethodGet, path: "/api/products"})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]productView](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "24.50", list[0].Price)
	assert.Equal(t, "low_stock", list[0].StockLevel)
	assert.True(t, list[0].InStock)
	assert.Equal(t, "https://cdn.example.com/img/kettle.jpg", list[0].ImageURL)

	w = f.do(t, call{method: http.MethodGet, path: "/api/products/hidden"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[apiError](t, w).Kind)
}

func TestGetCart_NoSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, call{method: http.MethodGet, path: "/api/cart"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(sessionHeader))

	v := decode[cartView](t, w)
	assert.Empty(t, v.Lines)
	assert.Equal(t, "0.00", v.Subtotal)
	assert.Equal(t, "pending", v.Tax)
	assert.Equal(t, "pending", v.Shipping)
}

func TestAddCartItem_CreatesSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, call{method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"product_id": "kettle"}})
	require.Equal(t, http.StatusOK, w.Code)

	created := w.Header().Get(sessionHeader)
	require.NotEmpty(t, created)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, created, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	assert.Equal(t, []int{1}, f.carts.added)
	v := decode[cartView](t, w)
	assert.Equal(t, created, v.Session)
	assert.Equal(t, "2.50", v.Total)
}

func TestCartMutations(t *testing.T) {
	f := newFixture(t)
	add := call{method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"product_id": "kettle", "quantity": 3}, headers: withSession()}

	w := f.do(t, add)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(sessionHeader), "existing session is kept")
	assert.Equal(t, "7.50", decode[cartView](t, w).Subtotal)

	w = f.do(t, call{method: http.MethodPut, path: "/api/cart/items/kettle", body: map[string]any{"quantity": 0}, headers: withSession()})
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[cartView](t, w)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, 1, v.Lines[0].Quantity)

	w = f.do(t, call{method: http.MethodDelete, path: "/api/cart/items/missing", headers: withSession()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[cartView](t, w).Lines, 1)

	w = f.do(t, call{method: http.MethodDelete, path: "/api/cart", headers: withSession()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cartView](t, w).Lines)
}

func TestReplaceCart(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, call{method: http.MethodPut, path: "/api/cart", body: map[string]any{"items": []map[string]any{
		{"product_id": "kettle", "quantity": 2},
		{"product_id": "mug"},
	}}})
	require.Equal(t, http.StatusOK, w.Code)
	created := w.Header().Get(sessionHeader)
	require.NotEmpty(t, created)

	v := decode[cartView](t, w)
	require.Len(t, v.Lines, 2)
	assert.Equal(t, 2, v.Lines[0].Quantity)
	assert.Equal(t, 1, v.Lines[1].Quantity)
	assert.Equal(t, "7.50", v.Subtotal)
	assert.Len(t, f.carts.carts[created].Lines, 2)

	w = f.do(t, call{method: http.MethodPut, path: "/api/cart", body: map[string]any{"items": []map[string]any{{"quantity": 1}}}, headers: withSession()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[apiError](t, w).Message, "items[0].product_id")

	f.carts.addErr = errors.Wrap(product.ErrNotFound, "product hidden")
	w = f.do(t, call{method: http.MethodPut, path: "/api/cart", body: map[string]any{"items": []map[string]any{{"product_id": "hidden"}}}, headers: withSession()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_Errors(t *testing.T) {
	tests := []struct {
		name     string
		call     call
		addErr   error
		wantCode int
		wantKind string
	}{
		{
			name:     "invalid session",
			call:     call{method: http.MethodGet, path: "/api/cart", headers: map[string]string{sessionHeader: "not-a-uuid"}},
			wantCode: http.StatusBadRequest,
			wantKind: "invalid_session",
		},
		{
			name:     "missing product id",
			call:     call{method: http.MethodPost, path: "/api/cart/items", body: map[string]any{}},
			wantCode: http.StatusBadRequest,
			wantKind: "invalid_request",
		},
		{
			name:     "unknown field",
			call:     call{method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"product_id": "kettle", "price": 1}},
			wantCode: http.StatusBadRequest,
			wantKind: "invalid_request",
		},
		{
			name:     "out of stock",
			call:     call{method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"product_id": "kettle"}, headers: withSession()},
			addErr:   cart.ErrOutOfStock,
			wantCode: http.StatusConflict,
			wantKind: "out_of_stock",
		},
		{
			name:     "concurrent modification",
			call:     call{method: http.MethodPost, path: "/api/cart/items", body: map[string]any{"product_id": "kettle"}, headers: withSession()},
			addErr:   errors.Wrap(cart.ErrConflict, "update cart"),
			wantCode: http.StatusConflict,
			wantKind: "conflict",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.carts.addErr = tt.addErr

			w := f.do(t, tt.call)
			assert.Equal(t, tt.wantCode, w.Code)
			body := decode[apiError](t, w)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	f.checkout.res = &checkout.Result{
		Order: f.orders.orders[orderID],
		PriceChanges: []checkout.PriceChange{{
			ProductID: "kettle", Name: "Kettle",
			Old: decimal.RequireFromString("20"), New: decimal.RequireFromString("24.5"),
		}},
	}

	w := f.do(t, call{
		method:  http.MethodPost,
		path:    "/api/checkout",
		body:    map[string]any{"customer": map[string]any{"name": "Asha", "email": "asha@example.com", "shipping_address": "12 MG Road"}},
		headers: withSession(idempotencyHeader, "idem-1", apiKeyHeader, userKey),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, session, f.checkout.last.Session)
	assert.Equal(t, "idem-1", f.checkout.last.IdempotencyKey)
	assert.Equal(t, "u-1", f.checkout.last.UserID)
	assert.Equal(t, "asha@example.com", f.checkout.last.Customer.Email)

	resp := decode[checkoutResponse](t, w)
	assert.Equal(t, orderID, resp.Order.ID)
	assert.Equal(t, "49.00", resp.Order.TotalAmount)
	assert.Equal(t, 2, resp.Order.ItemCount)
	require.Len(t, resp.PriceChanges, 1)
	assert.Equal(t, "20.00", resp.PriceChanges[0].OldPrice)
	assert.Equal(t, "24.50", resp.PriceChanges[0].NewPrice)
}

func TestCheckout_Replayed(t *testing.T) {
	f := newFixture(t)
	f.checkout.res = &checkout.Result{Order: f.orders.orders[orderID], Replayed: true}

	w := f.do(t, call{method: http.MethodPost, path: "/api/checkout", body: map[string]any{}, headers: withSession(idempotencyHeader, "idem-1")})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(replayedHeader))
	assert.Empty(t, f.checkout.last.UserID)
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		noSession   bool
		wantCode    int
		wantKind    string
		wantDetails map[string]any
	}{
		{name: "no session", noSession: true, wantCode: http.StatusUnprocessableEntity, wantKind: "empty_cart"},
		{name: "empty cart", err: checkout.ErrEmptyCart, wantCode: http.StatusUnprocessableEntity, wantKind: "empty_cart"},
		{
			name:     "idempotency key of another session",
			err:      checkout.ErrIdempotencyKeyConflict,
			wantCode: http.StatusConflict,
			wantKind: "idempotency_key_conflict",
		},
		{
			name:        "product unavailable",
			err:         &checkout.ProductUnavailableError{ProductID: "kettle", Name: "Kettle"},
			wantCode:    http.StatusUnprocessableEntity,
			wantKind:    "product_unavailable",
			wantDetails: map[string]any{"product_id": "kettle", "name": "Kettle"},
		},
		{
			name:     "insufficient stock",
			err:      &checkout.InsufficientStockError{ProductID: "kettle", Name: "Kettle", Requested: 5, Available: 2},
			wantCode: http.StatusConflict,
			wantKind: "insufficient_stock",
			wantDetails: map[string]any{
				"product_id": "kettle", "name": "Kettle", "requested": float64(5), "available": float64(2),
			},
		},
		{
			name: "price changed",
			err: &checkout.PriceChangedError{Changes: []checkout.PriceChange{{
				ProductID: "kettle", Name: "Kettle", Old: decimal.NewFromInt(20), New: decimal.NewFromInt(25),
			}}},
			wantCode: http.StatusConflict,
			wantKind: "price_changed",
			wantDetails: map[string]any{"changes": []any{map[string]any{
				"product_id": "kettle", "name": "Kettle", "old_price": "20.00", "new_price": "25.00",
			}}},
		},
		{
			name:        "invalid customer",
			err:         &order.InvalidCustomerError{Field: "email", Reason: "is invalid"},
			wantCode:    http.StatusBadRequest,
			wantKind:    "invalid_customer",
			wantDetails: map[string]any{"field": "email"},
		},
		{
			name:     "persistence failure",
			err:      &order.PersistenceError{Op: "create order", Err: errors.New("connection reset")},
			wantCode: http.StatusServiceUnavailable,
			wantKind: "retryable",
		},
		{name: "unexpected", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantKind: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.checkout.err = tt.err

			headers := withSession()
			if tt.noSession {
				headers = nil
			}
			w := f.do(t, call{method: http.MethodPost, path: "/api/checkout", body: map[string]any{}, headers: headers})

			assert.Equal(t, tt.wantCode, w.Code)
			body := decode[map[string]any](t, w)
			assert.Equal(t, tt.wantKind, body["error"])
			assert.Equal(t, float64(tt.wantCode), body["code"])
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, body["details"])
			}
			if tt.wantCode == http.StatusServiceUnavailable {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name     string
		call     call
		wantCode int
	}{
		{name: "bad key", call: call{method: http.MethodGet, path: "/api/products", headers: map[string]string{apiKeyHeader: "nope"}}, wantCode: http.StatusUnauthorized},
		{name: "my orders anonymous", call: call{method: http.MethodGet, path: "/api/orders"}, wantCode: http.StatusUnauthorized},
		{name: "my orders bearer", call: call{method: http.MethodGet, path: "/api/orders", headers: map[string]string{"Authorization": "Bearer " + userKey}}, wantCode: http.StatusOK},
		{name: "admin anonymous", call: call{method: http.MethodGet, path: "/api/admin/stats"}, wantCode: http.StatusUnauthorized},
		{name: "admin without scope", call: call{method: http.MethodGet, path: "/api/admin/stats", headers: map[string]string{apiKeyHeader: userKey}}, wantCode: http.StatusForbidden},
		{name: "admin", call: call{method: http.MethodGet, path: "/api/admin/stats", headers: map[string]string{apiKeyHeader: adminKey}}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assert.Equal(t, tt.wantCode, f.do(t, tt.call).Code)
		})
	}
}

func TestGetOrder_Visibility(t *testing.T) {
	path := "/api/orders/" + orderID
	tests := []struct {
		name     string
		call     call
		wantCode int
	}{
		{name: "owner", call: call{method: http.MethodGet, path: path, headers: map[string]string{apiKeyHeader: userKey}}, wantCode: http.StatusOK},
		{name: "admin", call: call{method: http.MethodGet, path: path, headers: map[string]string{apiKeyHeader: adminKey}}, wantCode: http.StatusOK},
		{name: "guest with email", call: call{method: http.MethodGet, path: path + "?email=asha@example.com"}, wantCode: http.StatusOK},
		{name: "guest wrong email", call: call{method: http.MethodGet, path: path + "?email=eve@example.com"}, wantCode: http.StatusNotFound},
		{name: "anonymous", call: call{method: http.MethodGet, path: path}, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assert.Equal(t, tt.wantCode, f.do(t, tt.call).Code)
		})
	}
}

func TestGetOrder_OtherUser(t *testing.T) {
	f := newFixture(t)
	f.orders.orders[orderID].UserID = "u-2"

	w := f.do(t, call{method: http.MethodGet, path: "/api/orders/" + orderID, headers: map[string]string{apiKeyHeader: userKey}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin(t *testing.T) {
	admin := map[string]string{apiKeyHeader: adminKey}

	t.Run("update status", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodPatch, path: "/api/admin/orders/" + orderID + "/status", body: map[string]any{"status": "processing"}, headers: admin})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "processing", decode[orderView](t, w).Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodPatch, path: "/api/admin/orders/" + orderID + "/status", body: map[string]any{"status": "shipped"}, headers: admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid transition", func(t *testing.T) {
		f := newFixture(t)
		f.orders.err = order.ErrInvalidTransition
		w := f.do(t, call{method: http.MethodPatch, path: "/api/admin/orders/" + orderID + "/status", body: map[string]any{"status": "completed"}, headers: admin})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "invalid_transition", decode[apiError](t, w).Kind)
	})

	t.Run("list with limit", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodGet, path: "/api/admin/orders?limit=20", headers: admin})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 20, f.orders.listed)

		w = f.do(t, call{method: http.MethodGet, path: "/api/admin/orders?limit=zero", headers: admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("set stock", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodPut, path: "/api/admin/products/kettle/stock", body: map[string]any{"stock": 0}, headers: admin})
		require.Equal(t, http.StatusOK, w.Code)
		v := decode[productView](t, w)
		assert.Equal(t, 0, v.Stock)
		assert.Equal(t, "out_of_stock", v.StockLevel)

		w = f.do(t, call{method: http.MethodPut, path: "/api/admin/products/kettle/stock", body: map[string]any{"stock": -1}, headers: admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = f.do(t, call{method: http.MethodPut, path: "/api/admin/products/kettle/stock", body: map[string]any{}, headers: admin})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("put product", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodPut, path: "/api/admin/products/grinder", headers: admin, body: map[string]any{
			"name":  "Burr Grinder",
			"price": "54.99",
			"stock": 15,
			"specs": map[string]any{"burr": "conical"},
		}})
		require.Equal(t, http.StatusOK, w.Code)
		v := decode[productView](t, w)
		assert.Equal(t, "54.99", v.Price)
		assert.True(t, v.InStock)
		assert.Equal(t, product.Specs{{Key: "burr", Value: "conical"}}, v.Specs)

		saved := f.products.products["grinder"]
		assert.True(t, saved.IsActive)
		assert.Equal(t, 15, saved.Stock)

		w = f.do(t, call{method: http.MethodPut, path: "/api/admin/products/kettle", headers: admin, body: map[string]any{
			"name": "Kettle", "price": "26.00", "stock": 4, "is_active": false,
		}})
		require.Equal(t, http.StatusOK, w.Code)
		kettle := f.products.products["kettle"]
		assert.Equal(t, "26", kettle.Price.String())
		assert.False(t, kettle.IsActive)
	})

	t.Run("put product invalid", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]any
		}{
			{name: "missing price", body: map[string]any{"name": "X", "stock": 1}},
			{name: "missing stock", body: map[string]any{"name": "X", "price": "1.00"}},
			{name: "missing name", body: map[string]any{"name": " ", "price": "1.00", "stock": 1}},
			{name: "negative price", body: map[string]any{"name": "X", "price": "-1.00", "stock": 1}},
			{name: "negative stock", body: map[string]any{"name": "X", "price": "1.00", "stock": -2}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				w := f.do(t, call{method: http.MethodPut, path: "/api/admin/products/x", headers: admin, body: tt.body})
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Empty(t, f.products.upserted)
			})
		}
	})

	t.Run("deactivate product", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodDelete, path: "/api/admin/products/kettle", headers: admin})
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.False(t, f.products.products["kettle"].IsActive)
		require.Len(t, f.products.upserted, 1)

		w = f.do(t, call{method: http.MethodGet, path: "/api/products/kettle"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = f.do(t, call{method: http.MethodDelete, path: "/api/admin/products/kettle", headers: admin})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Len(t, f.products.upserted, 1)

		w = f.do(t, call{method: http.MethodDelete, path: "/api/admin/products/ghost", headers: admin})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("product edits need admin", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodDelete, path: "/api/admin/products/kettle", headers: map[string]string{apiKeyHeader: userKey}})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.True(t, f.products.products["kettle"].IsActive)
	})

	t.Run("dashboard", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, call{method: http.MethodGet, path: "/api/admin/stats", headers: admin})
		require.Equal(t, http.StatusOK, w.Code)
		d := decode[dashboardView](t, w)
		assert.Equal(t, 3, d.TotalProducts)
		assert.Equal(t, "99.50", d.Revenue)
		assert.Equal(t, "49.75", d.AverageOrderValue)
		assert.Equal(t, map[string]int{"pending": 2}, d.OrdersByStatus)
	})
}

func TestNotFoundRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, call{method: http.MethodGet, path: "/api/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[apiError](t, w).Kind)
}
