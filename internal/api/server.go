// Package api exposes the HTTP interface for the market analysis service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/chat"
	"github.com/marketminer/marketminer/internal/config"
	"github.com/marketminer/marketminer/internal/fetcher"
	"github.com/marketminer/marketminer/internal/market"
	"github.com/marketminer/marketminer/internal/metrics"
)

// OpportunityAnalyzer is the orchestration surface the handlers call into.
type OpportunityAnalyzer interface {
	Analyze(ctx context.Context, req market.AnalysisRequest) (market.Report, error)
	Search(ctx context.Context, req market.AnalysisRequest) ([]market.Listing, []market.Platform, error)
}

// Deps bundles the collaborators the server needs.
type Deps struct {
	Analyzer  OpportunityAnalyzer
	Trends    market.TrendProvider
	Chat      *chat.Processor
	Generator *fetcher.Generator
	// DBCheck reports backing store health for the test endpoint. Nil means
	// no database is configured.
	DBCheck func(ctx context.Context) error
}

// Server wires HTTP handlers to the analyzer and trend engine.
type Server struct {
	router   chi.Router
	analyzer OpportunityAnalyzer
	trends   market.TrendProvider
	chat     *chat.Processor
	gen      *fetcher.Generator
	dbCheck  func(ctx context.Context) error
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		analyzer: deps.Analyzer,
		trends:   deps.Trends,
		chat:     deps.Chat,
		gen:      deps.Generator,
		dbCheck:  deps.DBCheck,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey, logger))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/test", s.testServices)
		r.Route("/search", func(r chi.Router) {
			r.Post("/products", s.searchProducts)
			r.Post("/shopify", s.searchShopify)
		})
		r.Route("/trends", func(r chi.Router) {
			r.Post("/analyze", s.analyzeTrends)
			r.Post("/compare", s.compareTrends)
		})
		r.Route("/analysis", func(r chi.Router) {
			r.Post("/opportunity", s.analyzeOpportunity)
			r.Post("/score", s.calculateScore)
		})
		r.Post("/chat/process", s.processChat)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "MarketMiner API is running",
		"version": "1.0.0",
	})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.dbCheck != nil {
		if err := s.dbCheck(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// testServices exercises each collaborator with a tiny request so operators
// can verify wiring without a real search.
func (s *Server) testServices(w http.ResponseWriter, r *http.Request) {
	results := map[string]string{
		"generator": "unknown",
		"trends":    "unknown",
		"database":  "unknown",
	}

	if s.gen != nil {
		if listings := s.gen.Generate("test", market.PlatformAmazon, 2); len(listings) == 2 {
			results["generator"] = "working"
		} else {
			results["generator"] = "failed"
		}
	}

	if s.trends != nil {
		if series := s.trends.Analyze(r.Context(), []string{"test"}, "today 1-m"); len(series) == 1 {
			results["trends"] = "working"
		} else {
			results["trends"] = "failed"
		}
	}

	if s.dbCheck == nil {
		results["database"] = "not configured"
	} else if err := s.dbCheck(r.Context()); err != nil {
		results["database"] = "error: " + err.Error()
	} else {
		results["database"] = "working"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "test_complete",
		"services": results,
	})
}
