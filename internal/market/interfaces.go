package market

import (
	"context"
	"time"
)

// ListingStore persists listings. Rows are append-only; superseded listings
// are never updated or deleted.
type ListingStore interface {
	SaveListing(ctx context.Context, listing Listing) (int64, error)
}

// SearchCache stores prior aggregation output keyed by (query, platform).
// Get returns the newest entry still inside the freshness window; a miss is
// reported via ok=false, not an error. Put always appends a new entry.
type SearchCache interface {
	Get(ctx context.Context, query string, platform Platform) ([]Listing, bool, error)
	Put(ctx context.Context, query string, platform Platform, listings []Listing) error
}

// Fetcher retrieves candidate listings for one platform. Implementations
// must be total: live failures are absorbed by synthetic fallback, never
// returned to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, query string, platform Platform, maxResults int) []Listing
}

// TrendProvider retrieves or synthesizes interest-over-time series. Same
// total-function contract as Fetcher.
type TrendProvider interface {
	Analyze(ctx context.Context, keywords []string, timeframe string) []TrendSeries
}

// BlobStore archives raw fetched pages and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ImageResolver maps a (title, search query) pair to a display image URL.
type ImageResolver interface {
	Resolve(title, searchQuery string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces report IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
