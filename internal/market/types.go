// Package market defines core types shared across subsystems.
package market

import (
	"strings"
	"time"
)

// Platform identifies a marketplace a listing came from.
type Platform string

// Platforms the fetcher knows how to search.
const (
	PlatformAmazon  Platform = "Amazon"
	PlatformEBay    Platform = "eBay"
	PlatformShopify Platform = "Shopify"
)

// ParsePlatform maps a client-supplied platform name to a known Platform.
// Matching is case-insensitive; unknown names return ok=false and are
// skipped by the orchestrator rather than rejected.
func ParsePlatform(name string) (Platform, bool) {
	switch {
	case strings.EqualFold(name, string(PlatformAmazon)):
		return PlatformAmazon, true
	case strings.EqualFold(name, string(PlatformEBay)):
		return PlatformEBay, true
	case strings.EqualFold(name, string(PlatformShopify)):
		return PlatformShopify, true
	default:
		return "", false
	}
}

// Listing is one scraped or synthesized product record for a platform/query
// pair. Listings are immutable once created; re-fetches append new rows.
type Listing struct {
	ID           int64     `json:"id,omitempty"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	Platform     Platform  `json:"platform"`
	Seller       string    `json:"seller,omitempty"`
	URL          string    `json:"url"`
	ImageURL     string    `json:"image_url,omitempty"`
	SearchQuery  string    `json:"search_query"`
	CreatedAt    time.Time `json:"created_at"`
}

// Priced reports whether the listing carries a known price (0 means unknown).
func (l Listing) Priced() bool {
	return l.Price > 0
}

// Rated reports whether the listing carries a rating (0 means unrated).
func (l Listing) Rated() bool {
	return l.Rating > 0
}

// TrendDirection classifies where a keyword's interest is heading.
type TrendDirection string

// Direction values produced by the trend engine.
const (
	TrendRising  TrendDirection = "rising"
	TrendStable  TrendDirection = "stable"
	TrendFalling TrendDirection = "falling"
)

// TrendPoint is one dated interest observation on a 0-100 scale.
type TrendPoint struct {
	Date     time.Time `json:"date"`
	Interest int       `json:"interest"`
}

// TrendSeries is a keyword's interest-over-time series plus derived stats.
type TrendSeries struct {
	Keyword         string         `json:"keyword"`
	Points          []TrendPoint   `json:"points"`
	AverageInterest float64        `json:"average_interest"`
	MaxInterest     int            `json:"max_interest"`
	MinInterest     int            `json:"min_interest"`
	Volatility      float64        `json:"volatility"`
	Direction       TrendDirection `json:"trend_direction"`
}

// RelatedQuery is a query suggestion attached to a trend series.
type RelatedQuery struct {
	Query string `json:"query"`
	Value string `json:"value"`
}

// RelatedQueries groups top and rising suggestions for a keyword.
type RelatedQueries struct {
	Top    []RelatedQuery `json:"top"`
	Rising []RelatedQuery `json:"rising"`
}

// ScoreBreakdown exposes the raw contribution of each score component.
type ScoreBreakdown struct {
	Trend         float64 `json:"trend_interest"`
	RatingReviews float64 `json:"rating_reviews"`
	Competition   float64 `json:"competition"`
	PriceSpread   float64 `json:"price_spread"`
}

// PriceRange is an optional post-filter over aggregated listings. A nil
// bound means unconstrained on that side.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// AnalysisRequest carries everything the orchestrator needs for one run.
// Query is the only validated field; unknown platforms are skipped.
type AnalysisRequest struct {
	Query         string
	Platforms     []string
	MaxResults    int
	Timeframe     string
	IncludeTrends bool
	Prices        *PriceRange
}

// Report is the request-scoped output of an opportunity analysis. It is
// never persisted.
type Report struct {
	ID               string         `json:"id"`
	Query            string         `json:"query"`
	Platforms        []Platform     `json:"platforms_searched"`
	Listings         []Listing      `json:"listings"`
	TotalListings    int            `json:"total_listings"`
	Trends           []TrendSeries  `json:"trends,omitempty"`
	OpportunityScore int            `json:"opportunity_score"`
	Breakdown        ScoreBreakdown `json:"score_breakdown"`
	Recommendations  []string       `json:"recommendations"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// ReportEvent is published when a report finishes assembling.
type ReportEvent struct {
	ReportID         string    `json:"report_id"`
	Query            string    `json:"query"`
	OpportunityScore int       `json:"opportunity_score"`
	TotalListings    int       `json:"total_listings"`
	GeneratedAt      time.Time `json:"generated_at"`
}
