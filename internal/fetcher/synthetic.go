package fetcher

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/marketminer/marketminer/internal/market"
)

// titleTemplates produce plausible product name variations from a query.
// %s is replaced by the query.
var titleTemplates = []string{
	"%s - Premium Quality",
	"Best %s 2024",
	"%s Professional Grade",
	"Wireless %s",
	"%s Set",
	"Portable %s",
	"%s Pro",
	"Smart %s",
}

// storeNameTemplates name synthetic Shopify storefronts.
var storeNameTemplates = []string{
	"%s Hub",
	"Premium %s",
	"The %s Store",
	"%s Direct",
	"Best %s Shop",
	"%s Warehouse",
	"Elite %s",
	"%s Express",
}

// Synthetic value ranges. Prices and ratings mirror what the live
// marketplaces actually show for consumer goods.
const (
	synthPriceMin   = 9.99
	synthPriceMax   = 199.99
	synthRatingMin  = 3.5
	synthRatingMax  = 5.0
	synthReviewsMin = 10
	synthReviewsMax = 5000
)

// Generator produces placeholder listings when live retrieval is
// unavailable or insufficient. The random source is injected so tests can
// assert deterministic output.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock market.Clock
}

// NewGenerator builds a Generator around a seeded random source.
func NewGenerator(rng *rand.Rand, clock market.Clock) *Generator {
	return &Generator{rng: rng, clock: clock}
}

// Generate produces count synthetic listings for a platform/query pair.
func (g *Generator) Generate(query string, platform market.Platform, count int) []market.Listing {
	if count <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	listings := make([]market.Listing, 0, count)
	for i := 0; i < count; i++ {
		listing := market.Listing{
			Title:        g.title(query),
			Price:        round2(synthPriceMin + g.rng.Float64()*(synthPriceMax-synthPriceMin)),
			Rating:       round1(synthRatingMin + g.rng.Float64()*(synthRatingMax-synthRatingMin)),
			ReviewsCount: synthReviewsMin + g.rng.Intn(synthReviewsMax-synthReviewsMin+1),
			Platform:     platform,
			URL:          fmt.Sprintf("https://example.com/product/%d", i),
			SearchQuery:  query,
			CreatedAt:    now,
		}
		switch platform {
		case market.PlatformAmazon:
			listing.Seller = fmt.Sprintf("Seller%d", i+1)
		case market.PlatformShopify:
			store := g.storeName(query)
			listing.Seller = store
			listing.URL = storefrontURL(store, query)
		}
		listings = append(listings, listing)
	}
	return listings
}

func (g *Generator) title(query string) string {
	tmpl := titleTemplates[g.rng.Intn(len(titleTemplates))]
	// "Wireless wireless earbuds" reads broken; keep the query as-is when it
	// already starts that way.
	if strings.Contains(tmpl, "Wireless") && strings.Contains(strings.ToLower(query), "wireless") {
		return query
	}
	return fmt.Sprintf(tmpl, query)
}

func (g *Generator) storeName(query string) string {
	tmpl := storeNameTemplates[g.rng.Intn(len(storeNameTemplates))]
	return fmt.Sprintf(tmpl, titleCase(query))
}

func storefrontURL(store, query string) string {
	host := strings.ToLower(strings.ReplaceAll(store, " ", ""))
	slug := strings.ToLower(strings.ReplaceAll(query, " ", "-"))
	return fmt.Sprintf("https://%s.myshopify.com/products/%s", host, slug)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
