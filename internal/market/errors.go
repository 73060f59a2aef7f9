package market

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is the single client-input failure surfaced by the
// orchestrator. Everything upstream of it is absorbed by fallbacks.
var ErrEmptyQuery = errors.New("query must not be empty")

// FetchFailureKind distinguishes live retrieval failure modes for logging.
// All kinds collapse to "use fallback" at the fetcher boundary.
type FetchFailureKind string

// Failure kinds recorded by the fetcher.
const (
	FetchFailTransport  FetchFailureKind = "transport"
	FetchFailStatus     FetchFailureKind = "status"
	FetchFailTimeout    FetchFailureKind = "timeout"
	FetchFailNoMatch    FetchFailureKind = "no_containers"
	FetchFailNoLiveRule FetchFailureKind = "no_live_rules"
)

// FetchError carries internal failure detail for observability while the
// external Fetch contract stays total.
type FetchError struct {
	Platform Platform
	Kind     FetchFailureKind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.Platform, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s)", e.Platform, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
