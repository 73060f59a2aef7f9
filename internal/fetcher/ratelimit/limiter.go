// Package ratelimit provides a per-host token bucket for outbound page
// retrieval, so live marketplace fetches stay polite.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketminer/marketminer/internal/metrics"
)

// Config holds rate limiter configuration. A non-positive RPS disables
// limiting.
type Config struct {
	RPS   float64
	Burst int
}

// Limiter manages one token bucket per target host.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    burst,
	}
}

// Wait blocks until a token is available for the host of rawURL, respecting
// the context.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if delay := time.Since(start); delay > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, delay)
	}
	return nil
}
