package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type memStore struct {
	mu    sync.Mutex
	carts map[string]Cart
	err   error
}

func newMemStore() *memStore {
	return &memStore{carts: make(map[string]Cart)}
}

func (m *memStore) Read(_ context.Context, session string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Cart{}, m.err
	}
	return m.carts[session].Clone(), nil
}

func (m *memStore) Write(_ context.Context, session string, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[session] = c.Clone()
	return nil
}

func (m *memStore) Update(_ context.Context, session string, fn func(c *Cart)) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Cart{}, m.err
	}
	c := m.carts[session].Clone()
	fn(&c)
	m.carts[session] = c.Clone()
	return c, nil
}

func (m *memStore) Clear(_ context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, session)
	return nil
}

type mockProductRepo struct {
	products map[string]product.Product
}

func (m *mockProductRepo) ListActive(context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) SetStock(context.Context, string, int) (*product.Product, error) {
	return nil, nil
}

func line(id string, price string, qty int) Line {
	return Line{ProductID: id, Name: "Product " + id, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

// --- Mutators ---

func TestCart_AddMergesSameProduct(t *testing.T) {
	var c Cart
	c.Add(line("p1", "10.00", 2))
	c.Add(line("p2", "5.00", 1))
	c.Add(line("p1", "12.00", 3))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, "p1", c.Lines[0].ProductID)
	assert.Equal(t, 5, c.Lines[0].Quantity)
	// Merge keeps the first snapshot.
	assert.True(t, decimal.RequireFromString("10.00").Equal(c.Lines[0].UnitPrice))
	assert.Equal(t, "p2", c.Lines[1].ProductID)
}

func TestCart_AddDefaultsQuantity(t *testing.T) {
	var c Cart
	c.Add(line("p1", "1.00", 0))
	c.Add(line("p2", "1.00", -4))

	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.Equal(t, 1, c.Lines[1].Quantity)
}

func TestCart_AddOrderIndependence(t *testing.T) {
	a := []Line{line("p1", "1.00", 1), line("p1", "1.00", 4), line("p1", "1.00", 2)}

	var forward, backward Cart
	for _, l := range a {
		forward.Add(l)
	}
	for i := len(a) - 1; i >= 0; i-- {
		backward.Add(a[i])
	}

	require.Len(t, forward.Lines, 1)
	require.Len(t, backward.Lines, 1)
	assert.Equal(t, 7, forward.Lines[0].Quantity)
	assert.Equal(t, forward.Lines[0].Quantity, backward.Lines[0].Quantity)
}

func TestCart_SetQuantity(t *testing.T) {
	tests := []struct {
		name string
		qty  int
		want int
	}{
		{name: "positive", qty: 7, want: 7},
		{name: "one", qty: 1, want: 1},
		{name: "zero clamps", qty: 0, want: 1},
		{name: "negative clamps", qty: -3, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			c.Add(line("p1", "2.00", 3))
			c.SetQuantity("p1", tt.qty)
			assert.Equal(t, tt.want, c.Lines[0].Quantity)
		})
	}
}

func TestCart_SetQuantityAbsentIsNoop(t *testing.T) {
	var c Cart
	c.Add(line("p1", "2.00", 3))
	c.SetQuantity("missing", 9)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestCart_RemoveIsIdempotent(t *testing.T) {
	var c Cart
	c.Add(line("p1", "1.00", 1))
	c.Add(line("p2", "1.00", 1))
	c.Add(line("p3", "1.00", 1))

	c.Remove("p2")
	once := c.Clone()
	c.Remove("p2")

	assert.Equal(t, once, c)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, "p1", c.Lines[0].ProductID)
	assert.Equal(t, "p3", c.Lines[1].ProductID)
}

func TestCart_Clear(t *testing.T) {
	var c Cart
	c.Add(line("p1", "1.00", 1))
	c.Clear()
	assert.True(t, c.IsEmpty())
}

func TestCart_CloneIsIndependent(t *testing.T) {
	var c Cart
	c.Add(line("p1", "1.00", 1))
	cp := c.Clone()
	cp.SetQuantity("p1", 5)

	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestLineFor(t *testing.T) {
	p := product.Product{
		ID:        "p1",
		Name:      "Kettle",
		Price:     decimal.RequireFromString("24.50"),
		ImageURLs: []string{"k1.jpg", "k2.jpg"},
	}
	l := LineFor(p, 0)

	assert.Equal(t, "p1", l.ProductID)
	assert.Equal(t, "Kettle", l.Name)
	assert.Equal(t, "k1.jpg", l.ImageURL)
	assert.Equal(t, 1, l.Quantity)
	assert.True(t, p.Price.Equal(l.UnitPrice))
}

// --- Service ---

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	repo := &mockProductRepo{products: map[string]product.Product{
		"kettle": {ID: "kettle", Name: "Kettle", Price: decimal.RequireFromString("24.50"), Stock: 5, IsActive: true},
		"empty":  {ID: "empty", Name: "Empty", Price: decimal.RequireFromString("1.00"), Stock: 0, IsActive: true},
		"gone":   {ID: "gone", Name: "Gone", Price: decimal.RequireFromString("1.00"), Stock: 10, IsActive: false},
	}}
	return NewService(store, repo), store
}

func TestService_AddItem(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	c, err := svc.AddItem(ctx, "s1", "kettle", 2)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)

	c, err = svc.AddItem(ctx, "s1", "kettle", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Lines[0].Quantity)

	stored, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, c.Lines, stored.Lines)
}

func TestService_AddItemErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "empty", 1)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.AddItem(ctx, "s1", "gone", 1)
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, err = svc.AddItem(ctx, "s1", "missing", 1)
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, err = svc.AddItem(ctx, "", "kettle", 1)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestService_SetRemoveClear(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "kettle", 1)
	require.NoError(t, err)

	c, err := svc.SetQuantity(ctx, "s1", "kettle", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Lines[0].Quantity)

	c, err = svc.RemoveItem(ctx, "s1", "kettle")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = svc.AddItem(ctx, "s1", "kettle", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "s1"))

	c, err = svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestService_StoreError(t *testing.T) {
	svc, store := newTestService()
	store.err = errors.New("connection refused")

	_, err := svc.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_Replace(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "kettle", 5)
	require.NoError(t, err)

	c, err := svc.Replace(ctx, "s1", []Selection{
		{ProductID: "kettle", Quantity: 1},
		{ProductID: "kettle", Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, "Kettle", c.Lines[0].Name)

	stored, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, c.Lines, stored.Lines)

	c, err = svc.Replace(ctx, "s1", nil)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestService_ReplaceRejectsAndKeepsCart(t *testing.T) {
	tests := []struct {
		name    string
		product string
		wantErr error
	}{
		{name: "unknown", product: "missing", wantErr: product.ErrNotFound},
		{name: "inactive", product: "gone", wantErr: product.ErrNotFound},
		{name: "sold out", product: "empty", wantErr: ErrOutOfStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService()
			ctx := context.Background()
			before, err := svc.AddItem(ctx, "s1", "kettle", 2)
			require.NoError(t, err)

			_, err = svc.Replace(ctx, "s1", []Selection{
				{ProductID: "kettle", Quantity: 1},
				{ProductID: tt.product, Quantity: 1},
			})
			require.ErrorIs(t, err, tt.wantErr)

			stored, err := store.Read(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, before.Lines, stored.Lines)
		})
	}
}
