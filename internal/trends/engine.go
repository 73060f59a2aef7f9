// Package trends retrieves or synthesizes search-interest series per keyword
// and classifies each series' direction.
package trends

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/market"
	"github.com/marketminer/marketminer/internal/metrics"
)

// MaxKeywords is the upstream per-request keyword limit; extra keywords are
// truncated, not rejected.
const MaxKeywords = 5

// Timeframe spans in days, selected by hint substrings the way the upstream
// API names its windows.
const (
	spanYear    = 365
	spanQuarter = 90
	spanMonth   = 30
)

// Client retrieves one live interest-over-time series.
type Client interface {
	InterestOverTime(ctx context.Context, keyword, timeframe string) ([]market.TrendPoint, error)
}

// Config controls the engine.
type Config struct {
	// Band is the relative dead zone around the older mean inside which a
	// series counts as stable (0.10 means ±10%).
	Band float64
}

// Engine implements market.TrendProvider. Analyze never fails: live
// retrieval errors are absorbed by synthetic generation.
type Engine struct {
	client Client
	cfg    Config
	clock  market.Clock
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs an Engine. client may be nil, in which case every series is
// synthetic.
func New(client Client, rng *rand.Rand, clock market.Clock, cfg Config, logger *zap.Logger) *Engine {
	if cfg.Band <= 0 {
		cfg.Band = 0.10
	}
	return &Engine{
		client: client,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		rng:    rng,
	}
}

// Analyze returns one classified series per keyword, at most MaxKeywords.
// Live and synthetic series go through the identical classification path.
func (e *Engine) Analyze(ctx context.Context, keywords []string, timeframe string) []market.TrendSeries {
	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}

	out := make([]market.TrendSeries, 0, len(keywords))
	for _, kw := range keywords {
		points := e.retrieve(ctx, kw, timeframe)
		out = append(out, e.build(kw, points))
	}
	return out
}

func (e *Engine) retrieve(ctx context.Context, keyword, timeframe string) []market.TrendPoint {
	if e.client != nil {
		points, err := e.client.InterestOverTime(ctx, keyword, timeframe)
		if err == nil && len(points) > 0 {
			return points
		}
		if err != nil {
			e.logger.Warn("live trend retrieval failed, synthesizing",
				zap.String("keyword", keyword),
				zap.Error(err),
			)
		}
	}
	metrics.ObserveTrendFallback()
	return e.synthesize(timeframe)
}

// build derives the series stats and direction from raw points.
func (e *Engine) build(keyword string, points []market.TrendPoint) market.TrendSeries {
	series := market.TrendSeries{
		Keyword:   keyword,
		Points:    points,
		Direction: market.TrendStable,
	}
	if len(points) == 0 {
		return series
	}

	sum := 0
	series.MaxInterest = points[0].Interest
	series.MinInterest = points[0].Interest
	for _, p := range points {
		sum += p.Interest
		if p.Interest > series.MaxInterest {
			series.MaxInterest = p.Interest
		}
		if p.Interest < series.MinInterest {
			series.MinInterest = p.Interest
		}
	}
	series.AverageInterest = float64(sum) / float64(len(points))
	series.Volatility = volatility(points, series.AverageInterest)
	series.Direction = e.classify(points)
	return series
}

// classify compares the mean of the first four points against the mean of
// the last four (single endpoints when the series is shorter). The band
// around the older mean breaks ties toward stable.
func (e *Engine) classify(points []market.TrendPoint) market.TrendDirection {
	if len(points) < 2 {
		return market.TrendStable
	}
	var older, recent float64
	if len(points) >= 4 {
		older = meanInterest(points[:4])
		recent = meanInterest(points[len(points)-4:])
	} else {
		older = float64(points[0].Interest)
		recent = float64(points[len(points)-1].Interest)
	}
	switch {
	case recent > older*(1+e.cfg.Band):
		return market.TrendRising
	case recent < older*(1-e.cfg.Band):
		return market.TrendFalling
	default:
		return market.TrendStable
	}
}

// synthesize produces weekly-spaced points over the timeframe span: a random
// base level modulated by a sinusoidal seasonal factor and multiplicative
// noise, clamped to the 0-100 interest scale.
func (e *Engine) synthesize(timeframe string) []market.TrendPoint {
	days := timeframeDays(timeframe)
	start := e.clock.Now().AddDate(0, 0, -days)

	e.mu.Lock()
	defer e.mu.Unlock()

	points := make([]market.TrendPoint, 0, days/7+1)
	for i := 0; i < days; i += 7 {
		base := float64(20 + e.rng.Intn(61))
		seasonal := 1 + 0.3*math.Sin(float64(i)*0.1)
		noise := 0.8 + e.rng.Float64()*0.4
		interest := int(base * seasonal * noise)
		if interest < 0 {
			interest = 0
		}
		if interest > 100 {
			interest = 100
		}
		points = append(points, market.TrendPoint{
			Date:     start.AddDate(0, 0, i),
			Interest: interest,
		})
	}
	return points
}

func timeframeDays(timeframe string) int {
	switch {
	case strings.Contains(timeframe, "12-m"):
		return spanYear
	case strings.Contains(timeframe, "3-m"):
		return spanQuarter
	case strings.Contains(timeframe, "1-m"):
		return spanMonth
	default:
		return spanYear
	}
}

func meanInterest(points []market.TrendPoint) float64 {
	sum := 0
	for _, p := range points {
		sum += p.Interest
	}
	return float64(sum) / float64(len(points))
}

// volatility is the population standard deviation of interest values.
func volatility(points []market.TrendPoint, mean float64) float64 {
	if len(points) == 0 {
		return 0
	}
	var acc float64
	for _, p := range points {
		d := float64(p.Interest) - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(points)))
}

// Suggestions returns canned related-query suggestions for a keyword.
func Suggestions(keyword string) market.RelatedQueries {
	return market.RelatedQueries{
		Top: []market.RelatedQuery{
			{Query: keyword + " best", Value: "100"},
			{Query: keyword + " review", Value: "85"},
			{Query: keyword + " price", Value: "70"},
			{Query: keyword + " buy", Value: "65"},
			{Query: keyword + " 2024", Value: "60"},
		},
		Rising: []market.RelatedQuery{
			{Query: keyword + " new", Value: "+150%"},
			{Query: keyword + " sale", Value: "+120%"},
			{Query: keyword + " discount", Value: "+100%"},
		},
	}
}
