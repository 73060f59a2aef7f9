// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketminer/marketminer/internal/market"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Pool is the subset of pgxpool.Pool the stores need. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PoolConfig controls the shared Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool builds a pgx connection pool from the provided config. Both stores
// share one pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// ListingStore appends listing rows into Postgres. Rows are never updated
// or deleted.
type ListingStore struct {
	pool  Pool
	table string
}

// NewListingStore constructs a store over an existing pool.
func NewListingStore(pool Pool, table string) (*ListingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ListingStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ListingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveListing inserts one listing row and returns its assigned id.
func (s *ListingStore) SaveListing(ctx context.Context, listing market.Listing) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("listing store is not configured")
	}
	if listing.Title == "" {
		return 0, fmt.Errorf("listing title is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	title,
	price,
	rating,
	reviews_count,
	platform,
	seller,
	url,
	image_url,
	search_query,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) RETURNING id`, s.table)

	args := []any{
		listing.Title,
		listing.Price,
		listing.Rating,
		listing.ReviewsCount,
		string(listing.Platform),
		listing.Seller,
		listing.URL,
		listing.ImageURL,
		listing.SearchQuery,
		listing.CreatedAt,
	}
	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert listing: %w", err)
	}
	return id, nil
}
