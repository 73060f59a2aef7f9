// Package headless renders search pages that assemble results with JavaScript.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/marketminer/marketminer/internal/fetcher"
)

// Config controls the behavior of the headless renderer.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Renderer implements fetcher.PageFetcher using chromedp and headless Chrome.
type Renderer struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a renderer backed by chromedp.
func NewChromedp(cfg Config) (*Renderer, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 25 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *Renderer) Close() {
	r.allocCancel()
}

// FetchPage navigates with a headless browser and returns the rendered DOM.
func (r *Renderer) FetchPage(ctx context.Context, url string) (fetcher.Page, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()
	go func() {
		// Propagate caller cancellation into the browser task.
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	var html string
	actions := []chromedp.Action{
		r.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fetcher.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	status := meta.status()
	if status == 0 {
		status = http.StatusOK
	}
	return fetcher.Page{
		URL:        url,
		StatusCode: status,
		Body:       []byte(html),
		Duration:   time.Since(start),
		Rendered:   true,
	}, nil
}

func (r *Renderer) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if r.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusCode
}
