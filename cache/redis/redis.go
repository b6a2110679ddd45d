// Package redis provides a Redis-backed settings cache so every replica of
// the console shares one view of cached settings.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache stores values under a key prefix in Redis.
type Cache struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the Redis cache.
type Option func(*Cache)

// WithPrefix namespaces every key. Defaults to "bastion:".
func WithPrefix(prefix string) Option { return func(c *Cache) { c.prefix = prefix } }

// WithTTL sets the entry lifetime. Zero means no expiry.
func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }

// New creates a cache on top of an existing client.
func New(client goredis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{client: client, prefix: "bastion:"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a cached value.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("bastion/redis: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores a value.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("bastion/redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("bastion/redis: delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix. It walks the
// keyspace with SCAN so large caches do not block the server.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("bastion/redis: delete prefix %s: %w", prefix, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("bastion/redis: scan %s: %w", prefix, err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("bastion/redis: delete prefix %s: %w", prefix, err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
