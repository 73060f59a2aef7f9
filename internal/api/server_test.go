package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/chat"
	"github.com/marketminer/marketminer/internal/config"
	"github.com/marketminer/marketminer/internal/fetcher"
	"github.com/marketminer/marketminer/internal/market"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeAnalyzer struct {
	report   market.Report
	listings []market.Listing
	err      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req market.AnalysisRequest) (market.Report, error) {
	if f.err != nil {
		return market.Report{}, f.err
	}
	if req.Query == "" {
		return market.Report{}, market.ErrEmptyQuery
	}
	return f.report, nil
}

func (f *fakeAnalyzer) Search(_ context.Context, req market.AnalysisRequest) ([]market.Listing, []market.Platform, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if req.Query == "" {
		return nil, nil, market.ErrEmptyQuery
	}
	return f.listings, []market.Platform{market.PlatformAmazon}, nil
}

type fakeTrends struct {
	series []market.TrendSeries
}

func (f *fakeTrends) Analyze(_ context.Context, keywords []string, _ string) []market.TrendSeries {
	if f.series != nil {
		return f.series
	}
	out := make([]market.TrendSeries, len(keywords))
	for i, kw := range keywords {
		out[i] = market.TrendSeries{
			Keyword:         kw,
			AverageInterest: float64(40 + 10*i),
			Direction:       market.TrendStable,
		}
	}
	return out
}

func newTestServer(t *testing.T, analyzer OpportunityAnalyzer, cfg config.Config) *Server {
	t.Helper()
	clock := fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewServer(Deps{
		Analyzer:  analyzer,
		Trends:    &fakeTrends{},
		Chat:      chat.NewProcessor(rand.New(rand.NewSource(42))),
		Generator: fetcher.NewGenerator(rand.New(rand.NewSource(42)), clock),
	}, cfg, zap.NewNop())
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", decodeBody(t, rec)["status"])
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz_DatabaseDown(t *testing.T) {
	t.Parallel()

	clock := fixedClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewServer(Deps{
		Analyzer:  &fakeAnalyzer{},
		Trends:    &fakeTrends{},
		Chat:      chat.NewProcessor(rand.New(rand.NewSource(42))),
		Generator: fetcher.NewGenerator(rand.New(rand.NewSource(42)), clock),
		DBCheck:   func(context.Context) error { return errors.New("down") },
	}, config.Config{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchProducts(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{listings: []market.Listing{
		{Title: "Wireless Earbuds Pro", Price: 59.99, Platform: market.PlatformAmazon},
		{Title: "Budget Earbuds", Price: 19.99, Platform: market.PlatformAmazon},
	}}
	s := newTestServer(t, analyzer, config.Config{})

	rec := postJSON(t, s.Handler(), "/v1/search/products", map[string]any{
		"query":     "wireless earbuds",
		"platforms": []string{"Amazon"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, float64(2), body["total_results"])
	require.Equal(t, "wireless earbuds", body["query"])
}

func TestSearchProducts_EmptyQuery(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	rec := postJSON(t, s.Handler(), "/v1/search/products", map[string]any{"query": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Query is required", decodeBody(t, rec)["error"])
}

func TestSearchShopify(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	rec := postJSON(t, s.Handler(), "/v1/search/shopify", map[string]any{
		"query":       "candles",
		"max_results": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, float64(4), body["total_stores"])
	stores, ok := body["stores"].([]any)
	require.True(t, ok)
	require.Len(t, stores, 4)
}

func TestAnalyzeTrends(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})

	rec := postJSON(t, s.Handler(), "/v1/trends/analyze", map[string]any{
		"keywords": []string{"earbuds", " ", "speakers"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, []any{"earbuds", "speakers"}, body["keywords"])
	require.Equal(t, "today 12-m", body["timeframe"])
	related, ok := body["related_queries"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, related, "earbuds")
}

func TestAnalyzeTrends_NoKeywords(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	rec := postJSON(t, s.Handler(), "/v1/trends/analyze", map[string]any{"keywords": []string{"  "}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareTrends(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})

	rec := postJSON(t, s.Handler(), "/v1/trends/compare", map[string]any{
		"keywords": []string{"earbuds", "headphones"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	cmp, ok := body["comparison"].(map[string]any)
	require.True(t, ok)
	// The fake assigns rising average interest by position.
	require.Equal(t, "headphones", cmp["winner"])
	insights, ok := cmp["insights"].([]any)
	require.True(t, ok)
	require.Len(t, insights, 2)
	require.Contains(t, insights[0], "earbuds: stable trend")
}

func TestCompareTrends_NeedsTwoKeywords(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	rec := postJSON(t, s.Handler(), "/v1/trends/compare", map[string]any{"keywords": []string{"solo"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeOpportunity(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{report: market.Report{
		ID:               "report-1",
		Query:            "wireless earbuds",
		OpportunityScore: 72,
	}}
	s := newTestServer(t, analyzer, config.Config{})

	rec := postJSON(t, s.Handler(), "/v1/analysis/opportunity", map[string]any{
		"query": "wireless earbuds",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "report-1", body["id"])
	require.Equal(t, float64(72), body["opportunity_score"])
}

func TestCalculateScore(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})

	rec := postJSON(t, s.Handler(), "/v1/analysis/score", map[string]any{
		"products": []map[string]any{
			{"title": "A", "price": 20.0, "rating": 4.5, "reviews_count": 500},
			{"title": "B", "price": 80.0, "rating": 4.0, "reviews_count": 1500},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	score := body["opportunity_score"].(float64)
	require.GreaterOrEqual(t, score, 0.0)
	require.LessOrEqual(t, score, 100.0)

	breakdown, ok := body["score_breakdown"].(map[string]any)
	require.True(t, ok)
	// Without trend data the default contribution applies.
	require.Equal(t, float64(20), breakdown["trend_interest"])
}

func TestProcessChat(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{listings: []market.Listing{
		{Title: "Wireless Earbuds Pro", Price: 45, Platform: market.PlatformAmazon},
	}}
	s := newTestServer(t, analyzer, config.Config{})

	rec := postJSON(t, s.Handler(), "/v1/chat/process", map[string]any{
		"message": "find me wireless earbuds under $50",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["should_search"])
	require.NotEmpty(t, body["ai_response"])

	products, ok := body["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 1)
	first, ok := products[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, first["isRecommended"])
	require.NotEmpty(t, first["features"])
}

func TestProcessChat_EmptyMessage(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	rec := postJSON(t, s.Handler(), "/v1/chat/process", map[string]any{"message": " "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	s := newTestServer(t, &fakeAnalyzer{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTestServicesEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAnalyzer{}, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/test", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	services, ok := body["services"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "working", services["generator"])
	require.Equal(t, "working", services["trends"])
	require.Equal(t, "not configured", services["database"])
}
