package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marketminer/marketminer/internal/market"
)

// ListingStore provides an in-memory implementation for development/testing.
// Rows are append-only, mirroring the Postgres store.
type ListingStore struct {
	mu       sync.RWMutex
	nextID   int64
	listings []market.Listing
}

// NewListingStore constructs a ListingStore.
func NewListingStore() *ListingStore {
	return &ListingStore{nextID: 1}
}

// SaveListing appends a listing and returns its assigned id.
func (s *ListingStore) SaveListing(_ context.Context, listing market.Listing) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	listing.ID = id
	s.listings = append(s.listings, listing)
	return id, nil
}

// Listings returns a copy of all stored listings.
func (s *ListingStore) Listings() []market.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

type cacheKey struct {
	query    string
	platform market.Platform
}

type cacheEntry struct {
	listings  []market.Listing
	createdAt time.Time
}

// SearchCache is an in-memory append-only cache keyed by (query, platform).
type SearchCache struct {
	mu        sync.RWMutex
	entries   map[cacheKey][]cacheEntry
	freshness time.Duration
	clock     market.Clock
}

// NewSearchCache constructs a SearchCache with the given freshness window.
func NewSearchCache(freshness time.Duration, clock market.Clock) *SearchCache {
	if freshness <= 0 {
		freshness = 24 * time.Hour
	}
	return &SearchCache{
		entries:   make(map[cacheKey][]cacheEntry),
		freshness: freshness,
		clock:     clock,
	}
}

// Get returns the newest entry for (query, platform) if still fresh.
func (c *SearchCache) Get(_ context.Context, query string, platform market.Platform) ([]market.Listing, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.entries[cacheKey{query: query, platform: platform}]
	if len(entries) == 0 {
		return nil, false, nil
	}
	newest := entries[len(entries)-1]
	if c.clock.Now().Sub(newest.createdAt) >= c.freshness {
		return nil, false, nil
	}
	out := make([]market.Listing, len(newest.listings))
	copy(out, newest.listings)
	return out, true, nil
}

// Put appends a new entry for (query, platform). Older entries stay.
func (c *SearchCache) Put(_ context.Context, query string, platform market.Platform, listings []market.Listing) error {
	stored := make([]market.Listing, len(listings))
	copy(stored, listings)

	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{query: query, platform: platform}
	c.entries[key] = append(c.entries[key], cacheEntry{
		listings:  stored,
		createdAt: c.clock.Now(),
	})
	return nil
}
