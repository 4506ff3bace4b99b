package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-scheduler/internal/catalog"
)

func storeFresh(t *testing.T, cache *MemoryQueryCache, key string, bookings []Booking) {
	t.Helper()
	lookup, err := cache.GetBookings(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, cache.StoreBookings(context.Background(), key, lookup.Generation, bookings))
}

func TestMemoryQueryCacheStoresAndReturnsCopies(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryQueryCache(time.Minute, 4, func() time.Time { return current })

	parentID := int64(1)
	original := []Booking{{ID: 2, Content: "Scratch", Date: catalog.MustParseDate("2024-05-06"), RecurringParentID: &parentID}}
	storeFresh(t, cache, "key", original)

	// Mutating the stored slice must not leak into the cache.
	original[0].Content = "mutated"
	*original[0].RecurringParentID = 99

	cached, err := cache.GetBookings(ctx, "key")
	require.NoError(t, err)
	require.True(t, cached.Hit)
	assert.Equal(t, "Scratch", cached.Bookings[0].Content)
	assert.Equal(t, int64(1), *cached.Bookings[0].RecurringParentID)

	cached.Bookings[0].Content = "changed"
	again, err := cache.GetBookings(ctx, "key")
	require.NoError(t, err)
	require.True(t, again.Hit)
	assert.Equal(t, "Scratch", again.Bookings[0].Content)
}

func TestMemoryQueryCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryQueryCache(time.Second, 4, func() time.Time { return current })

	storeFresh(t, cache, "key", []Booking{{ID: 1}})
	lookup, _ := cache.GetBookings(ctx, "key")
	assert.True(t, lookup.Hit)

	current = current.Add(2 * time.Second)
	lookup, _ = cache.GetBookings(ctx, "key")
	assert.False(t, lookup.Hit)
}

func TestMemoryQueryCacheEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryQueryCache(time.Minute, 2, func() time.Time { return current })

	for i := range 3 {
		current = current.Add(time.Second)
		storeFresh(t, cache, fmt.Sprintf("key-%d", i), []Booking{{ID: int64(i)}})
	}

	lookup, _ := cache.GetBookings(ctx, "key-0")
	assert.False(t, lookup.Hit, "oldest entry should be evicted")
	lookup, _ = cache.GetBookings(ctx, "key-2")
	assert.True(t, lookup.Hit)
}

func TestMemoryQueryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryQueryCache(time.Minute, 4, nil)
	storeFresh(t, cache, "key", []Booking{{ID: 1}})
	require.NoError(t, cache.Invalidate(ctx))

	lookup, _ := cache.GetBookings(ctx, "key")
	assert.False(t, lookup.Hit)
	assert.Equal(t, int64(1), lookup.Generation)
}

func TestMemoryQueryCacheDropsResultLoadedBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryQueryCache(time.Minute, 4, nil)

	miss, err := cache.GetBookings(ctx, "all")
	require.NoError(t, err)
	require.False(t, miss.Hit)

	// A write lands between the reader's load and its store.
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.StoreBookings(ctx, "all", miss.Generation, []Booking{{ID: 1}}))

	lookup, err := cache.GetBookings(ctx, "all")
	require.NoError(t, err)
	assert.False(t, lookup.Hit, "a list read before the write must not be cached")

	require.NoError(t, cache.StoreBookings(ctx, "all", lookup.Generation, []Booking{{ID: 1}, {ID: 2}}))
	lookup, err = cache.GetBookings(ctx, "all")
	require.NoError(t, err)
	require.True(t, lookup.Hit)
	assert.Len(t, lookup.Bookings, 2)
}
