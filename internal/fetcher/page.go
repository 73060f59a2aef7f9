// Package fetcher retrieves candidate product listings for one platform,
// degrading to synthetic data when live retrieval fails or under-delivers.
package fetcher

import (
	"context"
	"time"
)

// Page is one retrieved search results document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// PageFetcher retrieves a single search results page. Implementations must
// bound their own execution time so the outer Fetch contract stays total.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (Page, error)
}
