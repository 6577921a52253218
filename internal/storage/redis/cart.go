// Package redis stores carts in Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/domain/cart"
)

const defaultMaxRetries = 5

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store. Each cart is a JSON document under
// cart:<session>; empty carts are deleted rather than stored.
type CartStore struct {
	client     redis.UniversalClient
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
}

// NewCartStore returns a CartStore. A zero ttl keeps carts indefinitely.
func NewCartStore(client redis.UniversalClient, ttl time.Duration) *CartStore {
	return &CartStore{
		client:     client,
		ttl:        ttl,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
}

// Read returns the stored cart or an empty one if none exists.
func (s *CartStore) Read(ctx context.Context, session string) (cart.Cart, error) {
	return get(ctx, s.client, cartKey(session))
}

// Write replaces the stored cart.
func (s *CartStore) Write(ctx context.Context, session string, c cart.Cart) error {
	c.UpdatedAt = s.now().UTC()
	if c.IsEmpty() {
		return s.Clear(ctx, session)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Update runs fn inside an optimistic transaction on the cart key and retries
// when another writer changed the key in between.
func (s *CartStore) Update(ctx context.Context, session string, fn func(c *cart.Cart)) (cart.Cart, error) {
	key := cartKey(session)

	var out cart.Cart
	txf := func(tx *redis.Tx) error {
		c, err := get(ctx, tx, key)
		if err != nil {
			return err
		}
		fn(&c)
		c.UpdatedAt = s.now().UTC()

		var data []byte
		if !c.IsEmpty() {
			if data, err = json.Marshal(c); err != nil {
				return fmt.Errorf("marshal cart: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	}

	for range s.maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return cart.Cart{}, fmt.Errorf("redis update: %w", err)
	}
	return cart.Cart{}, cart.ErrConflict
}

// Clear deletes the stored cart.
func (s *CartStore) Clear(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, cartKey(session)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, r getter, key string) (cart.Cart, error) {
	data, err := r.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Cart{}, nil
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("redis get: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return cart.Cart{}, fmt.Errorf("unmarshal cart: %w", err)
	}
	return c, nil
}

func cartKey(session string) string {
	return "cart:" + session
}
