package fetcher

import (
	"fmt"
	"net/url"

	"github.com/marketminer/marketminer/internal/market"
)

// PlatformRules describes how to retrieve and parse one marketplace's search
// results. Selector lists are tried in order; the first that matches wins.
// Rules are injected into the Fetcher so tests can substitute their own.
type PlatformRules struct {
	// SearchURL renders the search results URL for a query. Empty means the
	// platform has no live retrieval path and goes straight to the
	// synthetic generator.
	SearchURL string

	// ContainerSelectors locate one product card each. The first selector
	// matching at least one element wins.
	ContainerSelectors []string

	// SkipSelector marks containers to drop (sponsored slots and the like).
	SkipSelector string

	// SkipTitles drops containers whose extracted title equals one of these
	// (eBay injects a "Shop on eBay" placeholder card).
	SkipTitles []string

	// Field rule priority lists, applied within a matched container.
	TitleSelectors  []string
	PriceSelectors  []string
	RatingSelectors []string
	ReviewSelectors []string

	// LinkSelector extracts the product URL from a container.
	LinkSelector string

	// URLPrefix is prepended to relative product links.
	URLPrefix string

	// Seller is attached verbatim to live listings when non-empty.
	Seller string
}

// Live reports whether this platform has a live retrieval path.
func (r PlatformRules) Live() bool {
	return r.SearchURL != ""
}

// SearchFor renders the platform search URL for a query.
func (r PlatformRules) SearchFor(query string) string {
	return fmt.Sprintf(r.SearchURL, url.QueryEscape(query))
}

// DefaultRules returns the built-in per-platform rule tables. Shopify has no
// live rules: the source of record for storefront data is the generator.
func DefaultRules() map[market.Platform]PlatformRules {
	return map[market.Platform]PlatformRules{
		market.PlatformAmazon: {
			SearchURL: "https://www.amazon.com/s?k=%s&ref=sr_pg_1",
			ContainerSelectors: []string{
				`div[data-component-type="s-search-result"]`,
				`.s-result-item`,
				`[data-asin]`,
			},
			TitleSelectors: []string{
				"h2 a span",
				".a-size-medium span",
				".a-size-base-plus",
				"h2 span",
			},
			PriceSelectors: []string{
				".a-price-whole",
				".a-offscreen",
				".a-price .a-offscreen",
			},
			RatingSelectors: []string{
				".a-icon-alt",
			},
			ReviewSelectors: []string{
				".a-size-base",
			},
			LinkSelector: "h2 a",
			URLPrefix:    "https://www.amazon.com",
			Seller:       "Amazon Seller",
		},
		market.PlatformEBay: {
			SearchURL: "https://www.ebay.com/sch/i.html?_nkw=%s&_sacat=0",
			ContainerSelectors: []string{
				".s-item__wrapper",
				".s-item",
				`[data-view="mi:1686"]`,
			},
			SkipSelector: ".s-item__title--tag",
			SkipTitles:   []string{"Shop on eBay"},
			TitleSelectors: []string{
				".s-item__title span",
				".s-item__title",
				"h3 span",
			},
			PriceSelectors: []string{
				".s-item__price .notranslate",
				".s-item__price",
				".s-item__detail--primary .s-item__price",
			},
			// eBay search results carry no rating or review counts.
			LinkSelector: ".s-item__link",
		},
		market.PlatformShopify: {},
	}
}
