// Package scoring turns aggregated listings and trend series into a single
// 0-100 opportunity score.
package scoring

import "github.com/marketminer/marketminer/internal/market"

// Component caps. The components are computed independently, summed and the
// total clamped to the 0-100 scale.
const (
	maxTrendPoints        = 40.0
	maxRatingReviewPoints = 30.0
	maxCompetitionPoints  = 20.0
	maxSpreadPoints       = 10.0

	// defaultTrendPoints is used when no trend data accompanies the request.
	defaultTrendPoints = 20.0

	// reviewSaturation is the mean review count at which the review half of
	// the rating component maxes out.
	reviewSaturation = 1000.0
)

// Score is a pure function of its inputs and never fails. An empty listing
// set still yields a valid (low) score.
func Score(listings []market.Listing, series []market.TrendSeries) (int, market.ScoreBreakdown) {
	breakdown := market.ScoreBreakdown{
		Trend:         trendComponent(series),
		RatingReviews: ratingReviewsComponent(listings),
		Competition:   competitionComponent(len(listings)),
		PriceSpread:   priceSpreadComponent(listings),
	}

	total := int(breakdown.Trend + breakdown.RatingReviews + breakdown.Competition + breakdown.PriceSpread)
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total, breakdown
}

// trendComponent weights each keyword's average interest by its direction
// and scales the cross-keyword mean onto the 40-point cap.
func trendComponent(series []market.TrendSeries) float64 {
	if len(series) == 0 {
		return defaultTrendPoints
	}

	var sum float64
	for _, s := range series {
		weight := 1.0
		switch s.Direction {
		case market.TrendRising:
			weight = 1.2
		case market.TrendFalling:
			weight = 0.8
		}
		sum += s.AverageInterest * weight
	}
	points := sum / float64(len(series)) * 0.4
	if points > maxTrendPoints {
		points = maxTrendPoints
	}
	return points
}

// ratingReviewsComponent gives 15 points scaled by the mean rating of rated
// listings and 15 more scaled by mean review volume, saturating at 1000.
// The review mean runs over every listing, zeros included, so sparse-review
// result sets stay cheap.
func ratingReviewsComponent(listings []market.Listing) float64 {
	var (
		ratingSum, reviewSum float64
		ratedCount           int
	)
	for _, l := range listings {
		if l.Rated() {
			ratingSum += l.Rating
			ratedCount++
		}
		reviewSum += float64(l.ReviewsCount)
	}

	var points float64
	if ratedCount > 0 {
		points += 15.0 * (ratingSum / float64(ratedCount)) / 5.0
	}
	if len(listings) > 0 {
		ratio := reviewSum / float64(len(listings)) / reviewSaturation
		if ratio > 1 {
			ratio = 1
		}
		points += 15.0 * ratio
	}
	if points > maxRatingReviewPoints {
		points = maxRatingReviewPoints
	}
	return points
}

// competitionComponent is inverse to listing count: a crowded result set
// scores low, a sparse one high.
func competitionComponent(count int) float64 {
	switch {
	case count > 50:
		return 5
	case count > 20:
		return 10
	case count > 10:
		return 15
	default:
		return maxCompetitionPoints
	}
}

// priceSpreadComponent rewards wide price dispersion relative to the mean,
// capped at 10 points. Needs at least two priced listings.
func priceSpreadComponent(listings []market.Listing) float64 {
	var (
		prices []float64
		sum    float64
	)
	for _, l := range listings {
		if l.Priced() {
			prices = append(prices, l.Price)
			sum += l.Price
		}
	}
	if len(prices) < 2 {
		return 0
	}

	min, max := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	avg := sum / float64(len(prices))
	if avg == 0 {
		return 0
	}

	points := (max - min) / avg * maxSpreadPoints
	if points > maxSpreadPoints {
		points = maxSpreadPoints
	}
	return points
}
