package fetcher

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marketminer/marketminer/internal/market"
)

// extractListings parses a search results page into listings using the
// platform's rule tables. Containers that yield no title are skipped, not
// counted as errors. Returns at most maxResults listings in document order.
func extractListings(
	page Page,
	rules PlatformRules,
	platform market.Platform,
	query string,
	maxResults int,
	now time.Time,
) ([]market.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	containers := selectContainers(doc, rules.ContainerSelectors)
	if containers == nil {
		return nil, nil
	}

	listings := make([]market.Listing, 0, maxResults)
	containers.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if maxResults >= 0 && len(listings) >= maxResults {
			return false
		}
		if rules.SkipSelector != "" && card.Find(rules.SkipSelector).Length() > 0 {
			return true
		}
		title := firstText(card, rules.TitleSelectors)
		if title == "" || skipTitle(title, rules.SkipTitles) {
			return true
		}
		listings = append(listings, market.Listing{
			Title:        title,
			Price:        extractPrice(card, rules.PriceSelectors),
			Rating:       extractRating(card, rules.RatingSelectors),
			ReviewsCount: extractReviews(card, rules.ReviewSelectors),
			Platform:     platform,
			Seller:       rules.Seller,
			URL:          extractLink(card, rules),
			SearchQuery:  query,
			CreatedAt:    now,
		})
		return true
	})
	return listings, nil
}

// selectContainers tries each container selector in priority order and
// returns the matches of the first one that finds anything.
func selectContainers(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty element.
func firstText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func skipTitle(title string, skip []string) bool {
	for _, s := range skip {
		if title == s {
			return true
		}
	}
	return false
}

// extractPrice tries each price selector in order; the first parseable value
// wins. 0 means unknown.
func extractPrice(card *goquery.Selection, selectors []string) float64 {
	for _, sel := range selectors {
		text := strings.TrimSpace(card.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if price, ok := parsePrice(text); ok {
			return price
		}
	}
	return 0
}

// parsePrice handles "$1,299.99", "1299", and ranges like "$10.99 to $15.99"
// (the lower bound wins).
func parsePrice(text string) (float64, bool) {
	text = strings.ReplaceAll(text, "$", "")
	text = strings.ReplaceAll(text, ",", "")
	if idx := strings.Index(text, " to "); idx >= 0 {
		text = text[:idx]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	price, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}

// extractRating parses values like "4.5 out of 5 stars". 0 means unrated.
func extractRating(card *goquery.Selection, selectors []string) float64 {
	for _, sel := range selectors {
		text := strings.TrimSpace(card.Find(sel).First().Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		rating, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || rating < 0 || rating > 5 {
			continue
		}
		return rating
	}
	return 0
}

// extractReviews pulls the digits out of strings like "1,234" or "(567)".
func extractReviews(card *goquery.Selection, selectors []string) int {
	for _, sel := range selectors {
		text := strings.TrimSpace(card.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if count, ok := parseDigits(text); ok {
			return count
		}
	}
	return 0
}

func parseDigits(text string) (int, bool) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractLink(card *goquery.Selection, rules PlatformRules) string {
	if rules.LinkSelector == "" {
		return ""
	}
	href, ok := card.Find(rules.LinkSelector).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return rules.URLPrefix + href
}
