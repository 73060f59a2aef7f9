package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/market"
	pubmemory "github.com/marketminer/marketminer/internal/publisher/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeIDs struct {
	id  string
	err error
}

func (f fakeIDs) NewID() (string, error) { return f.id, f.err }

type cacheKey struct {
	query    string
	platform market.Platform
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[cacheKey][]market.Listing
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[cacheKey][]market.Listing)}
}

func (f *fakeCache) Get(_ context.Context, query string, platform market.Platform) ([]market.Listing, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	listings, ok := f.entries[cacheKey{query, platform}]
	return listings, ok, nil
}

func (f *fakeCache) Put(_ context.Context, query string, platform market.Platform, listings []market.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[cacheKey{query, platform}] = listings
	f.puts++
	return nil
}

type fakeStore struct {
	mu     sync.Mutex
	saved  []market.Listing
	err    error
	nextID int64
}

func (f *fakeStore) SaveListing(_ context.Context, listing market.Listing) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.saved = append(f.saved, listing)
	return f.nextID, nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	perCall int
	calls   []market.Platform
}

func (f *fakeFetcher) Fetch(_ context.Context, query string, platform market.Platform, maxResults int) []market.Listing {
	f.mu.Lock()
	f.calls = append(f.calls, platform)
	f.mu.Unlock()

	n := f.perCall
	if n == 0 {
		n = maxResults
	}
	listings := make([]market.Listing, n)
	for i := range listings {
		listings[i] = market.Listing{
			Title:        fmt.Sprintf("%s Item %d", platform, i+1),
			Price:        20.0 + float64(i),
			Rating:       4.0,
			ReviewsCount: 100,
			Platform:     platform,
			SearchQuery:  query,
		}
	}
	return listings
}

type fakeTrends struct {
	mu       sync.Mutex
	keywords []string
	series   []market.TrendSeries
	calls    int
}

func (f *fakeTrends) Analyze(_ context.Context, keywords []string, _ string) []market.TrendSeries {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keywords = keywords
	return f.series
}

type fakeImages struct{}

func (fakeImages) Resolve(_, _ string) string { return "https://img.example.com/x.jpg" }

func newTestAnalyzer(cache *fakeCache, store *fakeStore, fetch *fakeFetcher, trends *fakeTrends, pub market.Publisher) *Analyzer {
	return New(
		cache,
		store,
		fetch,
		trends,
		fakeImages{},
		pub,
		fakeIDs{id: "report-1"},
		fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		Config{MaxResultsDefault: 20, DisplayLimit: 10, EventTopic: "reports"},
		zap.NewNop(),
	)
}

func TestAnalyze_RejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(newFakeCache(), &fakeStore{}, &fakeFetcher{}, &fakeTrends{}, pubmemory.New())

	_, err := a.Analyze(context.Background(), market.AnalysisRequest{Query: "   "})
	require.ErrorIs(t, err, market.ErrEmptyQuery)
}

func TestAnalyze_FetchesPersistsAndCaches(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	store := &fakeStore{}
	fetch := &fakeFetcher{}
	pub := pubmemory.New()
	a := newTestAnalyzer(cache, store, fetch, &fakeTrends{}, pub)

	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:     "wireless earbuds",
		Platforms: []string{"Amazon", "eBay"},
	})
	require.NoError(t, err)

	require.Equal(t, "report-1", report.ID)
	require.Equal(t, 40, report.TotalListings)
	require.Len(t, report.Listings, 10)
	require.Len(t, fetch.calls, 2)
	require.Len(t, store.saved, 40)
	require.Equal(t, 2, cache.puts)
	require.Equal(t, []market.Platform{market.PlatformAmazon, market.PlatformEBay}, report.Platforms)
	require.Equal(t, report.GeneratedAt, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	// Image URLs are attached before persistence, so every stored row and
	// cache entry carries one, not just the display subset.
	for _, l := range report.Listings {
		require.NotEmpty(t, l.ImageURL)
	}
	for _, l := range store.saved {
		require.NotEmpty(t, l.ImageURL)
	}
	for _, entry := range cache.entries {
		for _, l := range entry {
			require.NotEmpty(t, l.ImageURL)
		}
	}

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	event, ok := msgs[0].Payload.(market.ReportEvent)
	require.True(t, ok)
	require.Equal(t, "report-1", event.ReportID)
	require.Equal(t, 40, event.TotalListings)
}

func TestAnalyze_CacheHitSkipsFetch(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.entries[cacheKey{"wireless earbuds", market.PlatformAmazon}] = []market.Listing{
		{Title: "Cached Earbuds", Platform: market.PlatformAmazon, Price: 30},
	}
	fetch := &fakeFetcher{}
	a := newTestAnalyzer(cache, &fakeStore{}, fetch, &fakeTrends{}, pubmemory.New())

	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:     "wireless earbuds",
		Platforms: []string{"Amazon"},
	})
	require.NoError(t, err)
	require.Empty(t, fetch.calls)
	require.Equal(t, 1, report.TotalListings)
	require.Equal(t, "Cached Earbuds", report.Listings[0].Title)
}

func TestAnalyze_PersistenceFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.putErr = errors.New("cache down")
	store := &fakeStore{err: errors.New("db down")}
	a := newTestAnalyzer(cache, store, &fakeFetcher{}, &fakeTrends{}, pubmemory.New())

	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:     "desk lamp",
		Platforms: []string{"Amazon"},
	})
	require.NoError(t, err)
	require.Equal(t, 20, report.TotalListings)
}

func TestAnalyze_TrendKeywords(t *testing.T) {
	t.Parallel()

	trends := &fakeTrends{series: []market.TrendSeries{
		{Keyword: "wireless earbuds", AverageInterest: 60, Direction: market.TrendRising},
	}}
	a := newTestAnalyzer(newFakeCache(), &fakeStore{}, &fakeFetcher{}, trends, pubmemory.New())

	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:         "wireless earbuds pro max plus",
		Platforms:     []string{"Amazon"},
		IncludeTrends: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, trends.calls)
	require.Equal(t, []string{"wireless earbuds pro max plus", "wireless", "earbuds", "pro", "max"}, trends.keywords)
	require.Len(t, report.Trends, 1)
}

func TestAnalyze_TrendsSkippedUnlessRequested(t *testing.T) {
	t.Parallel()

	trends := &fakeTrends{}
	a := newTestAnalyzer(newFakeCache(), &fakeStore{}, &fakeFetcher{}, trends, pubmemory.New())

	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:     "desk lamp",
		Platforms: []string{"Amazon"},
	})
	require.NoError(t, err)
	require.Zero(t, trends.calls)
	require.Empty(t, report.Trends)
	// Without trend data the scorer falls back to the default contribution.
	require.Equal(t, 20.0, report.Breakdown.Trend)
}

func TestAnalyze_PriceFilter(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{perCall: 3} // prices 20, 21, 22
	a := newTestAnalyzer(newFakeCache(), &fakeStore{}, fetch, &fakeTrends{}, pubmemory.New())

	min := 21.0
	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:     "desk lamp",
		Platforms: []string{"Amazon"},
		Prices:    &market.PriceRange{Min: &min},
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalListings)
}

func TestAnalyze_SkipsUnknownPlatforms(t *testing.T) {
	t.Parallel()

	fetch := &fakeFetcher{}
	a := newTestAnalyzer(newFakeCache(), &fakeStore{}, fetch, &fakeTrends{}, pubmemory.New())

	report, err := a.Analyze(context.Background(), market.AnalysisRequest{
		Query:     "desk lamp",
		Platforms: []string{"Amazon", "Walmart"},
	})
	require.NoError(t, err)
	require.Equal(t, []market.Platform{market.PlatformAmazon}, report.Platforms)
	require.Len(t, fetch.calls, 1)
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	t.Run("no listings", func(t *testing.T) {
		t.Parallel()
		recs := recommendations(nil, nil)
		require.Equal(t, []string{"No products found - consider different keywords or platforms"}, recs)
	})

	t.Run("price variance and single platform", func(t *testing.T) {
		t.Parallel()
		listings := []market.Listing{
			{Title: "A", Price: 10, Platform: market.PlatformAmazon},
			{Title: "B", Price: 90, Platform: market.PlatformAmazon},
		}
		recs := recommendations(listings, nil)
		require.Contains(t, recs, "High price variation ($10.00-$90.00) suggests pricing opportunities")
		require.Contains(t, recs, "Low competition - potential blue ocean opportunity")
		require.Contains(t, recs, "Consider expanding to additional platforms")
	})

	t.Run("rising trends named", func(t *testing.T) {
		t.Parallel()
		listings := []market.Listing{
			{Title: "A", Price: 50, Platform: market.PlatformAmazon},
			{Title: "B", Price: 55, Platform: market.PlatformEBay},
		}
		series := []market.TrendSeries{
			{Keyword: "earbuds", Direction: market.TrendRising},
			{Keyword: "wired", Direction: market.TrendFalling},
		}
		recs := recommendations(listings, series)
		require.Contains(t, recs, "Rising trends detected: earbuds")
	})
}
