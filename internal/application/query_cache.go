package application

import (
	"context"
	"sync"
	"time"
)

// MemoryQueryCache keeps booking list results in process for a short TTL. It is
// the QueryCache used when no shared cache is configured.
type MemoryQueryCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]queryCacheEntry
	generation int64
}

type queryCacheEntry struct {
	bookings  []Booking
	expiresAt time.Time
}

// NewMemoryQueryCache builds an in-process cache. Non-positive values select a
// 30 second TTL and 128 entries.
func NewMemoryQueryCache(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryQueryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryQueryCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]queryCacheEntry),
	}
}

// GetBookings returns a copy of the cached list for key together with the
// current generation.
func (c *MemoryQueryCache) GetBookings(_ context.Context, key string) (CacheLookup, error) {
	if c == nil {
		return CacheLookup{}, nil
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	lookup := CacheLookup{Generation: c.generation}
	c.mu.RUnlock()
	if !ok {
		return lookup, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return lookup, nil
	}
	lookup.Bookings, lookup.Hit = cloneBookings(entry.bookings), true
	return lookup, nil
}

// StoreBookings caches a copy of bookings under key unless the cache was
// invalidated after the lookup that returned generation.
func (c *MemoryQueryCache) StoreBookings(_ context.Context, key string, generation int64, bookings []Booking) error {
	if c == nil {
		return nil
	}
	cloned := cloneBookings(bookings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return nil
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = queryCacheEntry{bookings: cloned, expiresAt: expiry}
	return nil
}

// Invalidate drops every entry and starts a new generation.
func (c *MemoryQueryCache) Invalidate(context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.entries = make(map[string]queryCacheEntry)
	c.generation++
	c.mu.Unlock()
	return nil
}

func (c *MemoryQueryCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryQueryCache) evictOneLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func cloneBookings(bookings []Booking) []Booking {
	out := make([]Booking, len(bookings))
	for i, b := range bookings {
		if b.RecurringEndDate != nil {
			end := *b.RecurringEndDate
			b.RecurringEndDate = &end
		}
		if b.RecurringParentID != nil {
			parent := *b.RecurringParentID
			b.RecurringParentID = &parent
		}
		out[i] = b
	}
	return out
}
