package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/chat"
	"github.com/marketminer/marketminer/internal/market"
	"github.com/marketminer/marketminer/internal/scoring"
	"github.com/marketminer/marketminer/internal/trends"
)

type searchRequest struct {
	Query      string             `json:"query"`
	Platforms  []string           `json:"platforms"`
	MaxResults int                `json:"max_results"`
	Prices     *market.PriceRange `json:"price_range"`
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	listings, platforms, err := s.analyzer.Search(r.Context(), market.AnalysisRequest{
		Query:      req.Query,
		Platforms:  req.Platforms,
		MaxResults: req.MaxResults,
		Prices:     req.Prices,
	})
	if err != nil {
		if errors.Is(err, market.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, "Query is required")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":              strings.TrimSpace(req.Query),
		"total_results":      len(listings),
		"products":           listings,
		"platforms_searched": platforms,
	})
}

type shopifyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// searchShopify returns generated storefront candidates; there is no live
// Shopify search path.
func (s *Server) searchShopify(w http.ResponseWriter, r *http.Request) {
	var req shopifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	stores := s.gen.Generate(query, market.PlatformShopify, maxResults)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":        query,
		"total_stores": len(stores),
		"stores":       stores,
	})
}

type trendsRequest struct {
	Keywords  []string `json:"keywords"`
	Timeframe string   `json:"timeframe"`
}

func (r *trendsRequest) normalize() {
	var kept []string
	for _, k := range r.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kept = append(kept, k)
		}
	}
	r.Keywords = kept
	if r.Timeframe == "" {
		r.Timeframe = "today 12-m"
	}
}

type trendsResponse struct {
	Keywords  []string                         `json:"keywords"`
	Timeframe string                           `json:"timeframe"`
	Series    []market.TrendSeries             `json:"trend_analysis"`
	Related   map[string]market.RelatedQueries `json:"related_queries"`
}

func (s *Server) analyzeTrends(w http.ResponseWriter, r *http.Request) {
	var req trendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.normalize()
	if len(req.Keywords) == 0 {
		s.writeError(w, http.StatusBadRequest, "Keywords are required")
		return
	}

	s.writeJSON(w, http.StatusOK, s.trendData(r, req))
}

type comparison struct {
	Winner   string   `json:"winner"`
	Insights []string `json:"insights"`
}

func (s *Server) compareTrends(w http.ResponseWriter, r *http.Request) {
	var req trendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.normalize()
	if len(req.Keywords) < 2 {
		s.writeError(w, http.StatusBadRequest, "At least 2 keywords required for comparison")
		return
	}

	data := s.trendData(r, req)

	cmp := comparison{}
	best := -1.0
	for _, series := range data.Series {
		if series.AverageInterest > best {
			best = series.AverageInterest
			cmp.Winner = series.Keyword
		}
		cmp.Insights = append(cmp.Insights, fmt.Sprintf(
			"%s: %s trend with %.1f average interest",
			series.Keyword, series.Direction, series.AverageInterest,
		))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"keywords":        data.Keywords,
		"timeframe":       data.Timeframe,
		"trend_analysis":  data.Series,
		"related_queries": data.Related,
		"comparison":      cmp,
	})
}

func (s *Server) trendData(r *http.Request, req trendsRequest) trendsResponse {
	series := s.trends.Analyze(r.Context(), req.Keywords, req.Timeframe)
	related := make(map[string]market.RelatedQueries, len(series))
	analyzed := make([]string, 0, len(series))
	for _, sr := range series {
		related[sr.Keyword] = trends.Suggestions(sr.Keyword)
		analyzed = append(analyzed, sr.Keyword)
	}
	return trendsResponse{
		Keywords:  analyzed,
		Timeframe: req.Timeframe,
		Series:    series,
		Related:   related,
	}
}

type opportunityRequest struct {
	Query         string             `json:"query"`
	Platforms     []string           `json:"platforms"`
	MaxResults    int                `json:"max_results"`
	Timeframe     string             `json:"timeframe"`
	IncludeTrends *bool              `json:"include_trends"`
	Prices        *market.PriceRange `json:"price_range"`
}

func (s *Server) analyzeOpportunity(w http.ResponseWriter, r *http.Request) {
	var req opportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	includeTrends := true
	if req.IncludeTrends != nil {
		includeTrends = *req.IncludeTrends
	}

	report, err := s.analyzer.Analyze(r.Context(), market.AnalysisRequest{
		Query:         req.Query,
		Platforms:     req.Platforms,
		MaxResults:    req.MaxResults,
		Timeframe:     req.Timeframe,
		IncludeTrends: includeTrends,
		Prices:        req.Prices,
	})
	if err != nil {
		if errors.Is(err, market.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, "Query is required")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

type scoreRequest struct {
	Products []market.Listing     `json:"products"`
	Trends   []market.TrendSeries `json:"trend_data"`
}

func (s *Server) calculateScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	score, breakdown := scoring.Score(req.Products, req.Trends)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"opportunity_score": score,
		"score_breakdown":   breakdown,
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatProduct struct {
	market.Listing
	IsRecommended bool     `json:"isRecommended"`
	Features      []string `json:"features"`
}

func (s *Server) processChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	processed := s.chat.Process(message)
	response := s.chat.Respond(processed)

	var products []chatProduct
	if processed.SearchQuery != "" {
		products = s.chatSuggestions(r, processed)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ai_response":     response,
		"products":        products,
		"processed_query": processed,
		"should_search":   processed.SearchQuery != "",
	})
}

// chatSuggestions fetches a handful of listings matching the processed
// query. Failures degrade to an empty suggestion list.
func (s *Server) chatSuggestions(r *http.Request, processed chat.ProcessedQuery) []chatProduct {
	platforms := processed.Platforms
	if len(platforms) > 2 {
		platforms = platforms[:2]
	}
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}

	listings, _, err := s.analyzer.Search(r.Context(), market.AnalysisRequest{
		Query:      processed.SearchQuery,
		Platforms:  names,
		MaxResults: 3,
		Prices:     processed.Prices,
	})
	if err != nil {
		s.logger.Warn("chat suggestion search failed",
			zap.String("query", processed.SearchQuery),
			zap.Error(err),
		)
		return nil
	}
	if len(listings) > 6 {
		listings = listings[:6]
	}

	products := make([]chatProduct, 0, len(listings))
	for _, l := range listings {
		products = append(products, chatProduct{
			Listing:       l,
			IsRecommended: true,
			Features:      s.chat.Features(l.Title),
		})
	}
	return products
}
