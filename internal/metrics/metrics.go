// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	liveFetchesTotal           *prometheus.CounterVec
	syntheticListingsTotal     *prometheus.CounterVec
	cacheLookupsTotal          *prometheus.CounterVec
	trendFallbacksTotal        prometheus.Counter
	reportsTotal               prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		liveFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketminer_live_fetches_total",
				Help: "Live marketplace retrievals, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)

		syntheticListingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketminer_synthetic_listings_total",
				Help: "Synthetic listings generated to pad under-delivering fetches, labeled by platform.",
			},
			[]string{"platform"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketminer_cache_lookups_total",
				Help: "Search cache lookups, labeled by result (hit or miss).",
			},
			[]string{"result"},
		)

		trendFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketminer_trend_fallbacks_total",
				Help: "Trend series synthesized because live retrieval failed or was empty.",
			},
		)

		reportsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketminer_reports_total",
				Help: "Opportunity reports assembled.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketminer_rate_limit_delay_seconds",
				Help:    "Time outbound fetches spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLiveFetch records one live retrieval attempt outcome
// ("ok", "error", "empty").
func ObserveLiveFetch(platform, outcome string) {
	Init()
	liveFetchesTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveSyntheticListings counts listings produced by the fallback generator.
func ObserveSyntheticListings(platform string, count int) {
	Init()
	if count > 0 {
		syntheticListingsTotal.WithLabelValues(platform).Add(float64(count))
	}
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveTrendFallback counts one synthesized trend series batch.
func ObserveTrendFallback() {
	Init()
	trendFallbacksTotal.Inc()
}

// ObserveReport counts one assembled opportunity report.
func ObserveReport() {
	Init()
	reportsTotal.Inc()
}

// ObserveRateLimitDelay records time spent waiting for an outbound fetch
// token.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
