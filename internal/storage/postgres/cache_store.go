package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketminer/marketminer/internal/market"
)

// CacheStoreConfig controls the cache table and freshness window.
type CacheStoreConfig struct {
	Table     string
	Freshness time.Duration
}

// CacheStore is an append-only search cache. Put always inserts a new row;
// Get reads only the newest row for a key and reports it fresh or not based
// on elapsed time since created_at.
type CacheStore struct {
	pool      Pool
	table     string
	freshness time.Duration
	clock     market.Clock
}

// NewCacheStore constructs a cache store over an existing pool.
func NewCacheStore(pool Pool, cfg CacheStoreConfig, clock market.Clock) (*CacheStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table := cfg.Table
	if table == "" {
		table = "search_cache"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = 24 * time.Hour
	}
	return &CacheStore{
		pool:      pool,
		table:     table,
		freshness: freshness,
		clock:     clock,
	}, nil
}

// Get returns the newest cached listings for (query, platform) if they are
// still inside the freshness window. Absent or stale rows are a miss, not
// an error.
func (s *CacheStore) Get(ctx context.Context, query string, platform market.Platform) ([]market.Listing, bool, error) {
	if s == nil || s.pool == nil {
		return nil, false, fmt.Errorf("cache store is not configured")
	}
	sql := fmt.Sprintf(`
SELECT payload, created_at
FROM %s
WHERE search_query = $1 AND platform = $2
ORDER BY created_at DESC
LIMIT 1`, s.table)

	var (
		payload   []byte
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx, sql, query, string(platform)).Scan(&payload, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	if s.clock.Now().Sub(createdAt) >= s.freshness {
		return nil, false, nil
	}

	var listings []market.Listing
	if err := json.Unmarshal(payload, &listings); err != nil {
		return nil, false, fmt.Errorf("decode cache payload: %w", err)
	}
	return listings, true, nil
}

// Put appends one cache row for (query, platform). Older rows for the same
// key are left in place.
func (s *CacheStore) Put(ctx context.Context, query string, platform market.Platform, listings []market.Listing) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("cache store is not configured")
	}
	payload, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}
	sql := fmt.Sprintf(`
INSERT INTO %s (search_query, platform, payload, created_at)
VALUES ($1,$2,$3,$4)`, s.table)

	if _, err := s.pool.Exec(ctx, sql, query, string(platform), payload, s.clock.Now()); err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}
