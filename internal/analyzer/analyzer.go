// Package analyzer drives one opportunity analysis end to end: cache
// consultation, per-platform fetching, persistence, trend analysis, scoring
// and report assembly.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/market"
	"github.com/marketminer/marketminer/internal/metrics"
	"github.com/marketminer/marketminer/internal/scoring"
)

// Config controls request defaulting and report assembly.
type Config struct {
	// MaxResultsDefault is used when a request does not specify max results.
	MaxResultsDefault int
	// DisplayLimit caps the listings embedded in the report.
	DisplayLimit int
	// EventTopic receives a ReportEvent per completed analysis. Empty
	// disables publishing.
	EventTopic string
	// Timeframe is the default trend window hint.
	Timeframe string
}

// Analyzer orchestrates the per-request pipeline. All collaborators are
// injected; none are optional except publisher and images.
type Analyzer struct {
	cache     market.SearchCache
	store     market.ListingStore
	fetcher   market.Fetcher
	trends    market.TrendProvider
	images    market.ImageResolver
	publisher market.Publisher
	ids       market.IDGenerator
	clock     market.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Analyzer.
func New(
	cache market.SearchCache,
	store market.ListingStore,
	fetcher market.Fetcher,
	trends market.TrendProvider,
	images market.ImageResolver,
	publisher market.Publisher,
	ids market.IDGenerator,
	clock market.Clock,
	cfg Config,
	logger *zap.Logger,
) *Analyzer {
	if cfg.MaxResultsDefault <= 0 {
		cfg.MaxResultsDefault = 20
	}
	if cfg.DisplayLimit <= 0 {
		cfg.DisplayLimit = 10
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "today 12-m"
	}
	return &Analyzer{
		cache:     cache,
		store:     store,
		fetcher:   fetcher,
		trends:    trends,
		images:    images,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Analyze runs the full pipeline for one request. The only input error is an
// empty query; everything downstream degrades instead of failing.
func (a *Analyzer) Analyze(ctx context.Context, req market.AnalysisRequest) (market.Report, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return market.Report{}, market.ErrEmptyQuery
	}

	platforms := a.resolvePlatforms(req.Platforms)
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = a.cfg.MaxResultsDefault
	}

	listings := a.collect(ctx, query, platforms, maxResults)
	listings = market.FilterByPrice(listings, req.Prices)

	var series []market.TrendSeries
	if req.IncludeTrends {
		timeframe := req.Timeframe
		if timeframe == "" {
			timeframe = a.cfg.Timeframe
		}
		series = a.trends.Analyze(ctx, keywordsFor(query), timeframe)
	}

	score, breakdown := scoring.Score(listings, series)

	display := listings
	if len(display) > a.cfg.DisplayLimit {
		display = display[:a.cfg.DisplayLimit]
	}
	display = a.resolveImages(display, query)

	report := market.Report{
		Query:            query,
		Platforms:        platforms,
		Listings:         display,
		TotalListings:    len(listings),
		Trends:           series,
		OpportunityScore: score,
		Breakdown:        breakdown,
		Recommendations:  recommendations(listings, series),
		GeneratedAt:      a.clock.Now(),
	}

	id, err := a.ids.NewID()
	if err != nil {
		a.logger.Warn("report id generation failed", zap.Error(err))
	} else {
		report.ID = id
	}

	a.publishEvent(ctx, report)
	metrics.ObserveReport()
	return report, nil
}

// Search aggregates listings across platforms without trends or scoring.
// The same cache and persistence path as Analyze applies.
func (a *Analyzer) Search(ctx context.Context, req market.AnalysisRequest) ([]market.Listing, []market.Platform, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, nil, market.ErrEmptyQuery
	}
	platforms := a.resolvePlatforms(req.Platforms)
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = a.cfg.MaxResultsDefault
	}
	listings := a.collect(ctx, query, platforms, maxResults)
	listings = market.FilterByPrice(listings, req.Prices)
	listings = a.resolveImages(listings, query)
	return listings, platforms, nil
}

// resolvePlatforms parses the requested platform names, dropping unknown
// ones. An empty request means Amazon and eBay.
func (a *Analyzer) resolvePlatforms(names []string) []market.Platform {
	if len(names) == 0 {
		return []market.Platform{market.PlatformAmazon, market.PlatformEBay}
	}
	var platforms []market.Platform
	for _, name := range names {
		p, ok := market.ParsePlatform(name)
		if !ok {
			a.logger.Warn("skipping unknown platform", zap.String("platform", name))
			continue
		}
		platforms = append(platforms, p)
	}
	return platforms
}

// collect gathers listings for every platform, fetching concurrently on
// cache misses. Results keep the requested platform order.
func (a *Analyzer) collect(ctx context.Context, query string, platforms []market.Platform, maxResults int) []market.Listing {
	perPlatform := make([][]market.Listing, len(platforms))

	var wg sync.WaitGroup
	for i, platform := range platforms {
		wg.Add(1)
		go func(i int, platform market.Platform) {
			defer wg.Done()
			perPlatform[i] = a.listingsFor(ctx, query, platform, maxResults)
		}(i, platform)
	}
	wg.Wait()

	var all []market.Listing
	for _, batch := range perPlatform {
		all = append(all, batch...)
	}
	return all
}

// listingsFor serves one platform from cache when fresh, otherwise fetches
// and persists. Image URLs are attached before persistence so stored rows
// and cache entries carry them. Persistence and cache writes are
// best-effort.
func (a *Analyzer) listingsFor(ctx context.Context, query string, platform market.Platform, maxResults int) []market.Listing {
	cached, ok, err := a.cache.Get(ctx, query, platform)
	if err != nil {
		a.logger.Warn("cache read failed",
			zap.String("platform", string(platform)),
			zap.String("query", query),
			zap.Error(err),
		)
	}
	metrics.ObserveCacheLookup(ok)
	if ok {
		return cached
	}

	listings := a.resolveImages(a.fetcher.Fetch(ctx, query, platform, maxResults), query)

	for _, listing := range listings {
		if _, err := a.store.SaveListing(ctx, listing); err != nil {
			a.logger.Warn("listing persistence failed",
				zap.String("platform", string(platform)),
				zap.String("title", listing.Title),
				zap.Error(err),
			)
		}
	}
	if err := a.cache.Put(ctx, query, platform, listings); err != nil {
		a.logger.Warn("cache write failed",
			zap.String("platform", string(platform)),
			zap.String("query", query),
			zap.Error(err),
		)
	}
	return listings
}

func (a *Analyzer) resolveImages(listings []market.Listing, query string) []market.Listing {
	if a.images == nil {
		return listings
	}
	out := make([]market.Listing, len(listings))
	copy(out, listings)
	for i := range out {
		if out[i].ImageURL == "" {
			out[i].ImageURL = a.images.Resolve(out[i].Title, query)
		}
	}
	return out
}

func (a *Analyzer) publishEvent(ctx context.Context, report market.Report) {
	if a.publisher == nil || a.cfg.EventTopic == "" {
		return
	}
	event := market.ReportEvent{
		ReportID:         report.ID,
		Query:            report.Query,
		OpportunityScore: report.OpportunityScore,
		TotalListings:    report.TotalListings,
		GeneratedAt:      report.GeneratedAt,
	}
	if _, err := a.publisher.Publish(ctx, a.cfg.EventTopic, event); err != nil {
		a.logger.Warn("report event publish failed",
			zap.String("report_id", report.ID),
			zap.Error(err),
		)
	}
}

// keywordsFor pairs the full query with its leading words, capped at five
// keywords total.
func keywordsFor(query string) []string {
	keywords := []string{query}
	for _, w := range strings.Fields(query) {
		if len(keywords) == 5 {
			break
		}
		keywords = append(keywords, w)
	}
	return keywords
}

// recommendations is advisory text derived from simple heuristics over
// prices, listing count, trend directions and platform coverage.
func recommendations(listings []market.Listing, series []market.TrendSeries) []string {
	if len(listings) == 0 {
		return []string{"No products found - consider different keywords or platforms"}
	}

	var recs []string

	var prices []float64
	var sum float64
	for _, l := range listings {
		if l.Priced() {
			prices = append(prices, l.Price)
			sum += l.Price
		}
	}
	if len(prices) > 0 {
		min, max := prices[0], prices[0]
		for _, p := range prices[1:] {
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
		}
		avg := sum / float64(len(prices))
		if max-min > avg*0.5 {
			recs = append(recs, fmt.Sprintf("High price variation ($%.2f-$%.2f) suggests pricing opportunities", min, max))
		}
		if avg < 25 {
			recs = append(recs, "Low average price point - consider volume-based strategy")
		} else if avg > 100 {
			recs = append(recs, "High price point - focus on quality and differentiation")
		}
	}

	if len(listings) > 50 {
		recs = append(recs, "High competition detected - focus on niche differentiation")
	} else if len(listings) < 10 {
		recs = append(recs, "Low competition - potential blue ocean opportunity")
	}

	var rising []string
	for _, s := range series {
		if s.Direction == market.TrendRising {
			rising = append(rising, s.Keyword)
		}
	}
	if len(rising) > 0 {
		recs = append(recs, "Rising trends detected: "+strings.Join(rising, ", "))
	}

	seen := make(map[market.Platform]struct{})
	for _, l := range listings {
		seen[l.Platform] = struct{}{}
	}
	if len(seen) == 1 {
		recs = append(recs, "Consider expanding to additional platforms")
	}

	return recs
}
