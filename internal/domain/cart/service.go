package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// Selection is a requested product and quantity.
type Selection struct {
	ProductID string
	Quantity  int
}

// Service applies cart mutations through a Store.
type Service struct {
	store    Store
	products product.Repository
}

// NewService creates a cart Service.
func NewService(store Store, products product.Repository) *Service {
	return &Service{store: store, products: products}
}

// Get returns the cart for session.
func (s *Service) Get(ctx context.Context, session string) (Cart, error) {
	if session == "" {
		return Cart{}, ErrInvalidSession
	}
	c, err := s.store.Read(ctx, session)
	if err != nil {
		return Cart{}, errors.Wrap(err, "read cart")
	}
	return c, nil
}

// AddItem looks up the product and adds quantity of it to the cart. Inactive
// products are reported as product.ErrNotFound.
func (s *Service) AddItem(ctx context.Context, session, productID string, quantity int) (Cart, error) {
	if session == "" {
		return Cart{}, ErrInvalidSession
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return Cart{}, errors.Wrapf(err, "get product %s", productID)
	}
	if !p.IsActive {
		return Cart{}, product.ErrNotFound
	}
	if p.Stock <= 0 {
		return Cart{}, ErrOutOfStock
	}

	line := LineFor(*p, quantity)
	return s.update(ctx, session, func(c *Cart) { c.Add(line) })
}

// SetQuantity changes the quantity of a line; values below one become one.
func (s *Service) SetQuantity(ctx context.Context, session, productID string, quantity int) (Cart, error) {
	return s.update(ctx, session, func(c *Cart) { c.SetQuantity(productID, quantity) })
}

// RemoveItem deletes a line; removing an absent product is a no-op.
func (s *Service) RemoveItem(ctx context.Context, session, productID string) (Cart, error) {
	return s.update(ctx, session, func(c *Cart) { c.Remove(productID) })
}

// Replace overwrites the cart with selections, such as a cart the client kept
// locally before it had a session. Products are looked up in one batch and
// each selection goes through Add, so repeated products merge. An unknown,
// inactive or sold-out product rejects the whole request and the stored cart
// is left as it was.
func (s *Service) Replace(ctx context.Context, session string, selections []Selection) (Cart, error) {
	if session == "" {
		return Cart{}, ErrInvalidSession
	}

	byID := make(map[string]product.Product, len(selections))
	if len(selections) > 0 {
		ids := make([]string, len(selections))
		for i, sel := range selections {
			ids[i] = sel.ProductID
		}
		products, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return Cart{}, errors.Wrap(err, "get products")
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	var c Cart
	for _, sel := range selections {
		p, ok := byID[sel.ProductID]
		switch {
		case !ok || !p.IsActive:
			return Cart{}, errors.Wrapf(product.ErrNotFound, "product %s", sel.ProductID)
		case p.Stock <= 0:
			return Cart{}, errors.Wrapf(ErrOutOfStock, "product %s", sel.ProductID)
		}
		c.Add(LineFor(p, sel.Quantity))
	}

	if err := s.store.Write(ctx, session, c); err != nil {
		return Cart{}, errors.Wrap(err, "write cart")
	}
	return c, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, session string) error {
	if session == "" {
		return ErrInvalidSession
	}
	if err := s.store.Clear(ctx, session); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func (s *Service) update(ctx context.Context, session string, fn func(c *Cart)) (Cart, error) {
	if session == "" {
		return Cart{}, ErrInvalidSession
	}
	c, err := s.store.Update(ctx, session, fn)
	if err != nil {
		return Cart{}, errors.Wrap(err, "update cart")
	}
	return c, nil
}
