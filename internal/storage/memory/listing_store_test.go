package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marketminer/marketminer/internal/market"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestListingStoreAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	store := NewListingStore()
	ctx := context.Background()

	first, err := store.SaveListing(ctx, market.Listing{Title: "A", Platform: market.PlatformAmazon})
	require.NoError(t, err)
	second, err := store.SaveListing(ctx, market.Listing{Title: "B", Platform: market.PlatformEBay})
	require.NoError(t, err)

	require.Equal(t, int64(1), first)
	require.Equal(t, int64(2), second)

	stored := store.Listings()
	require.Len(t, stored, 2)
	require.Equal(t, int64(1), stored[0].ID)
	require.Equal(t, "B", stored[1].Title)
}

func TestSearchCacheFreshnessWindow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewSearchCache(24*time.Hour, clock)
	ctx := context.Background()

	listings := []market.Listing{{Title: "Wireless Earbuds Pro", Platform: market.PlatformAmazon}}
	require.NoError(t, cache.Put(ctx, "wireless earbuds", market.PlatformAmazon, listings))

	got, ok, err := cache.Get(ctx, "wireless earbuds", market.PlatformAmazon)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)

	// Advance past the window; the same entry is now a miss.
	clock.now = clock.now.Add(25 * time.Hour)
	_, ok, err = cache.Get(ctx, "wireless earbuds", market.PlatformAmazon)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSearchCacheKeysByQueryAndPlatform(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewSearchCache(24*time.Hour, clock)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "desk lamp", market.PlatformAmazon, []market.Listing{{Title: "Lamp"}}))

	_, ok, err := cache.Get(ctx, "desk lamp", market.PlatformEBay)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = cache.Get(ctx, "floor lamp", market.PlatformAmazon)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSearchCacheNewestEntryWins(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewSearchCache(24*time.Hour, clock)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "kettle", market.PlatformAmazon, []market.Listing{{Title: "Old"}}))
	clock.now = clock.now.Add(time.Hour)
	require.NoError(t, cache.Put(ctx, "kettle", market.PlatformAmazon, []market.Listing{{Title: "New"}}))

	got, ok, err := cache.Get(ctx, "kettle", market.PlatformAmazon)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "New", got[0].Title)
}
