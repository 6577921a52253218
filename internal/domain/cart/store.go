package cart

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrConflict is returned by Store.Update when concurrent writers kept
	// modifying the cart and the update could not be applied.
	ErrConflict = errors.New("cart was modified concurrently")
	// ErrOutOfStock is returned when adding a product that has no stock.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrInvalidSession is returned for an empty cart session ID.
	ErrInvalidSession = errors.New("cart session required")
)

// Store persists carts by session ID. A missing cart reads as empty.
type Store interface {
	Read(ctx context.Context, session string) (Cart, error)
	Write(ctx context.Context, session string, c Cart) error
	// Update applies fn to the stored cart atomically with respect to other
	// Update calls for the same session and returns the written cart.
	Update(ctx context.Context, session string, fn func(c *Cart)) (Cart, error)
	Clear(ctx context.Context, session string) error
}
