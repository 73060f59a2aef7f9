// Package chat extracts structured search parameters from free-text
// questions. The matching is keyword and regex based; there is no language
// model and no per-conversation state.
package chat

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/marketminer/marketminer/internal/market"
)

// Intent labels what the user is asking for.
type Intent string

const (
	IntentSearch    Intent = "search"
	IntentCompare   Intent = "compare"
	IntentRecommend Intent = "recommend"
	IntentTrending  Intent = "trending"
	IntentPrice     Intent = "price"
)

// ProcessedQuery is the structured reading of one chat message.
type ProcessedQuery struct {
	Intent        Intent             `json:"intent"`
	ProductType   string             `json:"product_type,omitempty"`
	Prices        *market.PriceRange `json:"price_constraints,omitempty"`
	Platforms     []market.Platform  `json:"platforms"`
	SearchQuery   string             `json:"search_query"`
	OriginalQuery string             `json:"original_query"`
}

var productKeywords = []string{
	"earbuds", "headphones", "laptop", "phone", "watch", "shoes", "clothes",
	"gym gear", "fitness", "kitchen", "home", "electronics", "books",
	"toys", "games", "beauty", "skincare", "supplements", "wireless",
	"bluetooth", "smart", "portable", "professional", "premium",
}

// intentPatterns is ordered; the first intent with a matching keyword wins.
var intentPatterns = []struct {
	intent   Intent
	keywords []string
}{
	{IntentSearch, []string{"find", "search", "look for", "show me", "get me"}},
	{IntentCompare, []string{"compare", "vs", "versus", "difference", "better"}},
	{IntentRecommend, []string{"recommend", "suggest", "best", "top", "good"}},
	{IntentTrending, []string{"trending", "popular", "hot", "viral", "latest"}},
	{IntentPrice, []string{"cheap", "expensive", "under", "below", "above", "over", "budget"}},
}

var (
	underRe   = regexp.MustCompile(`(?:under|below|less than)\s*\$?(\d+)`)
	overRe    = regexp.MustCompile(`(?:over|above|more than)\s*\$?(\d+)`)
	betweenRe = regexp.MustCompile(`between\s*\$?(\d+)\s*and\s*\$?(\d+)`)
)

var stopWords = map[string]struct{}{
	"find": {}, "me": {}, "some": {}, "good": {}, "best": {}, "the": {},
	"a": {}, "an": {}, "for": {}, "with": {}, "under": {}, "over": {},
	"show": {}, "get": {},
}

// Processor turns chat messages into ProcessedQuery values and canned
// responses. The rng only varies response phrasing.
type Processor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewProcessor builds a Processor around rng.
func NewProcessor(rng *rand.Rand) *Processor {
	return &Processor{rng: rng}
}

// Process extracts intent, product type, price constraints, platforms and a
// cleaned search query from message.
func (p *Processor) Process(message string) ProcessedQuery {
	lower := strings.ToLower(message)
	productType := extractProductType(lower)
	return ProcessedQuery{
		Intent:        extractIntent(lower),
		ProductType:   productType,
		Prices:        extractPrices(lower),
		Platforms:     extractPlatforms(lower),
		SearchQuery:   searchQueryFor(lower, productType),
		OriginalQuery: message,
	}
}

func extractIntent(query string) Intent {
	for _, p := range intentPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(query, kw) {
				return p.intent
			}
		}
	}
	return IntentSearch
}

func extractProductType(query string) string {
	for _, kw := range productKeywords {
		if strings.Contains(query, kw) {
			return kw
		}
	}
	// Grab the word after a determiner as a weak noun-phrase guess.
	words := strings.Fields(query)
	for i, w := range words {
		switch w {
		case "for", "some", "a", "an":
			if i+1 < len(words) {
				return words[i+1]
			}
		}
	}
	return ""
}

func extractPrices(query string) *market.PriceRange {
	var prices market.PriceRange
	if m := underRe.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			prices.Max = &v
		}
	}
	if m := overRe.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			prices.Min = &v
		}
	}
	if m := betweenRe.FindStringSubmatch(query); m != nil {
		lo, loErr := strconv.ParseFloat(m[1], 64)
		hi, hiErr := strconv.ParseFloat(m[2], 64)
		if loErr == nil && hiErr == nil {
			prices.Min = &lo
			prices.Max = &hi
		}
	}
	if prices.Min == nil && prices.Max == nil {
		return nil
	}
	return &prices
}

func extractPlatforms(query string) []market.Platform {
	var platforms []market.Platform
	if strings.Contains(query, "amazon") {
		platforms = append(platforms, market.PlatformAmazon)
	}
	if strings.Contains(query, "ebay") {
		platforms = append(platforms, market.PlatformEBay)
	}
	if strings.Contains(query, "shopify") {
		platforms = append(platforms, market.PlatformShopify)
	}
	if len(platforms) == 0 {
		platforms = []market.Platform{market.PlatformAmazon, market.PlatformEBay}
	}
	return platforms
}

// searchQueryFor prefers the detected product type, otherwise strips stop
// words and keeps the first three substantive terms.
func searchQueryFor(query, productType string) string {
	if productType != "" {
		return productType
	}
	var kept []string
	for _, w := range strings.Fields(query) {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, " ")
}

var responseTemplates = map[Intent][]string{
	IntentSearch: {
		"I'll help you find %s! Let me search across multiple platforms.",
		"Great choice! Searching for %s now.",
		"Perfect! I'm looking for the best %s available.",
	},
	IntentRecommend: {
		"I'd be happy to recommend the best %s based on current market trends!",
		"Here are my top recommendations for %s based on ratings and reviews.",
		"Based on market analysis, here are the %s I highly recommend.",
	},
	IntentTrending: {
		"Let me show you what's trending in %s right now!",
		"Here are the hottest %s that everyone's talking about.",
		"These %s are absolutely viral right now!",
	},
	IntentCompare: {
		"I'll help you compare different %s to find the best value.",
		"Great idea! Let me analyze the top %s for you.",
		"Comparing %s across platforms to find your perfect match.",
	},
	IntentPrice: {
		"Looking for budget-friendly %s? I've got you covered!",
		"I'll find the best %s within your price range.",
		"Smart shopping! Let me find %s that offer great value.",
	},
}

// Respond produces a short conversational reply for the processed query.
func (p *Processor) Respond(q ProcessedQuery) string {
	templates, ok := responseTemplates[q.Intent]
	if !ok {
		templates = responseTemplates[IntentSearch]
	}
	subject := q.ProductType
	if subject == "" {
		subject = "products"
	}

	p.mu.Lock()
	base := fmt.Sprintf(templates[p.rng.Intn(len(templates))], subject)
	p.mu.Unlock()

	if q.Prices != nil {
		if q.Prices.Max != nil {
			base += fmt.Sprintf(" I'll focus on options under $%.0f.", *q.Prices.Max)
		}
		if q.Prices.Min != nil {
			base += fmt.Sprintf(" Looking at premium options over $%.0f.", *q.Prices.Min)
		}
	}
	return base
}

// featureKeywords is ordered so feature lists come out stable per title.
var featureKeywords = []struct {
	keyword string
	feature string
}{
	{"wireless", "Wireless"},
	{"bluetooth", "Bluetooth"},
	{"waterproof", "Waterproof"},
	{"premium", "Premium Quality"},
	{"professional", "Professional Grade"},
	{"portable", "Portable"},
	{"smart", "Smart Features"},
	{"fast", "Fast Performance"},
	{"hd", "HD Quality"},
	{"4k", "4K Resolution"},
}

var genericFeatures = []string{"High Quality", "Best Seller", "Fast Shipping", "Great Reviews"}

// Features derives up to three selling points from a product title,
// falling back to two generic ones when the title carries no known keywords.
func (p *Processor) Features(title string) []string {
	lower := strings.ToLower(title)
	var features []string
	for _, fk := range featureKeywords {
		if strings.Contains(lower, fk.keyword) {
			features = append(features, fk.feature)
		}
	}
	if len(features) == 0 {
		p.mu.Lock()
		i := p.rng.Intn(len(genericFeatures))
		j := p.rng.Intn(len(genericFeatures) - 1)
		p.mu.Unlock()
		if j >= i {
			j++
		}
		features = []string{genericFeatures[i], genericFeatures[j]}
	}
	if len(features) > 3 {
		features = features[:3]
	}
	return features
}
