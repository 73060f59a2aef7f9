// Package collyfetcher implements fetcher.PageFetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/marketminer/marketminer/internal/fetcher"
	"github.com/marketminer/marketminer/internal/fetcher/ratelimit"
)

// Config controls collector behavior. A nil Limiter disables outbound rate
// limiting.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Limiter   *ratelimit.Limiter
}

// PageFetcher fetches search result pages through a Colly collector.
type PageFetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a PageFetcher.
func New(cfg Config) *PageFetcher {
	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &PageFetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// FetchPage executes a single HTTP GET using Colly.
func (f *PageFetcher) FetchPage(ctx context.Context, url string) (fetcher.Page, error) {
	if f.cfg.Limiter != nil {
		if err := f.cfg.Limiter.Wait(ctx, url); err != nil {
			return fetcher.Page{}, err
		}
	}

	var (
		result   fetcher.Page
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	collector.OnResponse(func(r *colly.Response) {
		result = fetcher.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			// Non-success responses become status-coded pages, not
			// transport errors: the caller distinguishes the two.
			result = fetcher.Page{
				URL:        url,
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
				Duration:   time.Since(start),
			}
			return
		}
		fetchErr = err
	})

	if err := f.visit(ctx, collector, url, &result, &fetchErr); err != nil {
		return fetcher.Page{}, err
	}
	return result, nil
}

func (f *PageFetcher) visit(ctx context.Context, collector *colly.Collector, url string, result *fetcher.Page, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("page fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("page response failed: %w", *fetchErr)
		}
		// Visit reports non-2xx statuses as errors; a populated result
		// means OnError already captured the status-coded page.
		if err != nil && result.StatusCode == 0 {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
