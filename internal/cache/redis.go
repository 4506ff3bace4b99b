// Package cache stores booking query results in Redis so several API instances
// share one cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/lab-scheduler/internal/application"
)

const defaultPrefix = "labsched"

// RedisQueryCache implements application.QueryCache. Entries are namespaced by
// a generation counter; Invalidate bumps the counter so every earlier entry
// becomes unreachable and expires on its own.
type RedisQueryCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisQueryCache wraps client. A non-positive ttl selects 30 seconds.
func NewRedisQueryCache(client redis.Cmdable, prefix string, ttl time.Duration) *RedisQueryCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisQueryCache{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient builds a client and pings it with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisQueryCache) generationKey() string { return c.prefix + ":generation" }

func (c *RedisQueryCache) entryKey(generation int64, key string) string {
	return c.prefix + ":bookings:" + strconv.FormatInt(generation, 10) + ":" + key
}

func (c *RedisQueryCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetBookings returns the cached result for key, if any, and the generation it
// was looked up under.
func (c *RedisQueryCache) GetBookings(ctx context.Context, key string) (application.CacheLookup, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return application.CacheLookup{}, fmt.Errorf("read cache generation: %w", err)
	}
	lookup := application.CacheLookup{Generation: gen}

	raw, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return lookup, nil
	}
	if err != nil {
		return lookup, fmt.Errorf("read cache entry: %w", err)
	}

	var bookings []application.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		return lookup, fmt.Errorf("decode cache entry: %w", err)
	}
	if bookings == nil {
		bookings = []application.Booking{}
	}
	lookup.Bookings, lookup.Hit = bookings, true
	return lookup, nil
}

// StoreBookings caches bookings for the configured ttl under the generation
// they were looked up in. After an Invalidate that entry key is never read
// again, so a list loaded before a write cannot be served after it.
func (c *RedisQueryCache) StoreBookings(ctx context.Context, key string, generation int64, bookings []application.Booking) error {
	current, err := c.generation(ctx)
	if err != nil {
		return fmt.Errorf("read cache generation: %w", err)
	}
	if current != generation {
		return nil
	}
	raw, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.entryKey(generation, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Invalidate drops every cached query result.
func (c *RedisQueryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}
