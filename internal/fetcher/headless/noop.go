package headless

import (
	"context"
	"errors"

	"github.com/marketminer/marketminer/internal/fetcher"
)

// Noop implements fetcher.PageFetcher but always returns an error to
// indicate that headless rendering is not available in the current build.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// FetchPage returns an error since this is a stub implementation.
func (Noop) FetchPage(_ context.Context, _ string) (fetcher.Page, error) {
	return fetcher.Page{}, errors.New("headless renderer not configured")
}
