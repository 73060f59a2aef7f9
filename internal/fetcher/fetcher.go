package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/fetcher/detector"
	"github.com/marketminer/marketminer/internal/hash/sha256"
	"github.com/marketminer/marketminer/internal/market"
	"github.com/marketminer/marketminer/internal/metrics"
)

// Config controls fetch pipeline behavior.
type Config struct {
	// LiveFloor is the minimum number of parsed live listings below which
	// the synthetic generator pads the result.
	LiveFloor int

	// Timeout bounds one live retrieval attempt.
	Timeout time.Duration

	// ArchivePrefix and ArchiveContentType control raw page archiving.
	ArchivePrefix      string
	ArchiveContentType string
}

// Fetcher retrieves listings for one platform at a time. Fetch never fails:
// live retrieval errors are collapsed into synthetic fallback at this
// boundary, with the failure kind preserved for logging.
type Fetcher struct {
	rules    map[market.Platform]PlatformRules
	pages    PageFetcher
	renderer PageFetcher
	gen      *Generator
	archive  market.BlobStore
	clock    market.Clock
	cfg      Config
	logger   *zap.Logger
	promoter *detector.Heuristic
	hasher   *sha256.Hasher
}

// New constructs a Fetcher. renderer and archive may be nil; the renderer is
// only consulted when the static page yields no containers.
func New(
	rules map[market.Platform]PlatformRules,
	pages PageFetcher,
	renderer PageFetcher,
	gen *Generator,
	archive market.BlobStore,
	clock market.Clock,
	cfg Config,
	logger *zap.Logger,
) *Fetcher {
	if cfg.LiveFloor < 0 {
		cfg.LiveFloor = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "pages"
	}
	if cfg.ArchiveContentType == "" {
		cfg.ArchiveContentType = "text/html; charset=utf-8"
	}
	return &Fetcher{
		rules:    rules,
		pages:    pages,
		renderer: renderer,
		gen:      gen,
		archive:  archive,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		promoter: detector.NewHeuristic(0),
		hasher:   sha256.New(),
	}
}

// Fetch returns exactly maxResults listings for the platform whenever
// maxResults >= 0, padding with synthetic listings when live retrieval
// under-delivers. Results keep retrieval order; no ranking is applied.
func (f *Fetcher) Fetch(ctx context.Context, query string, platform market.Platform, maxResults int) []market.Listing {
	if maxResults < 0 {
		maxResults = 0
	}

	live, ferr := f.live(ctx, query, platform, maxResults)
	if ferr != nil {
		f.logger.Warn("live retrieval unavailable, using fallback",
			zap.String("platform", string(platform)),
			zap.String("query", query),
			zap.String("kind", string(ferr.Kind)),
			zap.Error(ferr.Err),
		)
		metrics.ObserveLiveFetch(string(platform), "error")
		live = nil
	} else if len(live) > 0 {
		metrics.ObserveLiveFetch(string(platform), "ok")
	}

	if len(live) < f.cfg.LiveFloor {
		padded := f.gen.Generate(query, platform, maxResults-len(live))
		metrics.ObserveSyntheticListings(string(platform), len(padded))
		live = append(live, padded...)
	}
	if len(live) > maxResults {
		live = live[:maxResults]
	}
	return live
}

// live runs one bounded retrieval attempt. It reports failures via a typed
// error consumed by Fetch; it never returns both listings and an error.
func (f *Fetcher) live(ctx context.Context, query string, platform market.Platform, maxResults int) ([]market.Listing, *market.FetchError) {
	rules, ok := f.rules[platform]
	if !ok || !rules.Live() {
		return nil, &market.FetchError{Platform: platform, Kind: market.FetchFailNoLiveRule}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	page, err := f.pages.FetchPage(ctx, rules.SearchFor(query))
	if err != nil {
		kind := market.FetchFailTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = market.FetchFailTimeout
		}
		return nil, &market.FetchError{Platform: platform, Kind: kind, Err: err}
	}
	if page.StatusCode != http.StatusOK {
		return nil, &market.FetchError{
			Platform: platform,
			Kind:     market.FetchFailStatus,
			Err:      fmt.Errorf("status %d", page.StatusCode),
		}
	}

	f.archivePage(ctx, platform, query, page)

	listings, err := extractListings(page, rules, platform, query, maxResults, f.clock.Now())
	if err != nil {
		return nil, &market.FetchError{Platform: platform, Kind: market.FetchFailTransport, Err: err}
	}
	if listings == nil && f.promoter.ShouldPromote(page.StatusCode, page.Body) {
		if rendered, rerr := f.render(ctx, rules, query); rerr == nil {
			listings, err = extractListings(rendered, rules, platform, query, maxResults, f.clock.Now())
			if err != nil {
				return nil, &market.FetchError{Platform: platform, Kind: market.FetchFailTransport, Err: err}
			}
		}
	}
	if listings == nil {
		return nil, &market.FetchError{Platform: platform, Kind: market.FetchFailNoMatch}
	}
	return listings, nil
}

// render retries the search page through the headless renderer, for result
// pages assembled by JavaScript.
func (f *Fetcher) render(ctx context.Context, rules PlatformRules, query string) (Page, error) {
	if f.renderer == nil {
		return Page{}, errors.New("headless renderer not configured")
	}
	page, err := f.renderer.FetchPage(ctx, rules.SearchFor(query))
	if err != nil {
		return Page{}, fmt.Errorf("headless render: %w", err)
	}
	return page, nil
}

// archivePage stores the raw page body, best-effort.
func (f *Fetcher) archivePage(ctx context.Context, platform market.Platform, query string, page Page) {
	if f.archive == nil || len(page.Body) == 0 {
		return
	}
	digest, err := f.hasher.Hash(page.Body)
	if err != nil {
		f.logger.Warn("page digest failed", zap.Error(err))
		return
	}
	objectPath := path.Join(f.cfg.ArchivePrefix, string(platform), digest+".html")
	if _, err := f.archive.PutObject(ctx, objectPath, f.cfg.ArchiveContentType, page.Body); err != nil {
		f.logger.Warn("page archive failed",
			zap.String("platform", string(platform)),
			zap.String("query", query),
			zap.Error(err),
		)
	}
}
