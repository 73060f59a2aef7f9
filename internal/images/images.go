// Package images maps product titles and search queries to curated display
// image URLs. Lookups are keyword matches against a fixed table; there is no
// remote call on the request path.
package images

import "strings"

type entry struct {
	key string
	url string
}

// products is ordered so ambiguous titles resolve deterministically.
var products = []entry{
	// Kitchen equipment.
	{"ninja mega kitchen system", "https://images.unsplash.com/photo-1556909114-f6e7ad7d3136?w=400&h=400&fit=crop&auto=format&q=80"},
	{"instant pot", "https://images.unsplash.com/photo-1574781330855-d0db8cc6a79c?w=400&h=400&fit=crop&auto=format&q=80"},
	{"kitchen knife set", "https://images.unsplash.com/photo-1593618998160-e34014e67546?w=400&h=400&fit=crop&auto=format&q=80"},
	{"cuisinart food processor", "https://images.unsplash.com/photo-1556909114-f6e7ad7d3136?w=400&h=400&fit=crop&auto=format&q=80"},
	{"oxo mixing bowl", "https://images.unsplash.com/photo-1556909114-f6e7ad7d3136?w=400&h=400&fit=crop&auto=format&q=80"},
	{"stainless steel utensil", "https://images.unsplash.com/photo-1556909114-f6e7ad7d3136?w=400&h=400&fit=crop&auto=format&q=80"},

	// Electronics and audio.
	{"apple airpods pro", "https://images.unsplash.com/photo-1606220945770-b5b6c2c55bf1?w=400&h=400&fit=crop&auto=format&q=80"},
	{"sony wf-1000xm4", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&h=400&fit=crop&auto=format&q=80"},
	{"anker soundcore", "https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=400&h=400&fit=crop&auto=format&q=80"},
	{"wireless earbuds", "https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=400&h=400&fit=crop&auto=format&q=80"},
	{"bluetooth headphones", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&h=400&fit=crop&auto=format&q=80"},

	// Mobile phones.
	{"iphone 15 pro", "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=400&h=400&fit=crop&auto=format&q=80"},
	{"samsung galaxy", "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=400&h=400&fit=crop&auto=format&q=80"},
	{"phone case", "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=400&h=400&fit=crop&auto=format&q=80"},

	// Fitness and gym equipment.
	{"resistance bands set", "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=400&h=400&fit=crop&auto=format&q=80"},
	{"adjustable dumbbells", "https://images.unsplash.com/photo-1434682881908-b43d0467b798?w=400&h=400&fit=crop&auto=format&q=80"},
	{"yoga mat premium", "https://images.unsplash.com/photo-1544367567-0f2fcb009e0b?w=400&h=400&fit=crop&auto=format&q=80"},
	{"foam roller", "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=400&h=400&fit=crop&auto=format&q=80"},
	{"kettlebell set", "https://images.unsplash.com/photo-1517836357463-d25dfeac3438?w=400&h=400&fit=crop&auto=format&q=80"},
	{"pull-up bar", "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=400&h=400&fit=crop&auto=format&q=80"},

	// Generic categories.
	{"premium gym products", "https://images.unsplash.com/photo-1434682881908-b43d0467b798?w=400&h=400&fit=crop&auto=format&q=80"},
	{"home gym equipment", "https://images.unsplash.com/photo-1517836357463-d25dfeac3438?w=400&h=400&fit=crop&auto=format&q=80"},
	{"professional workout gear", "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=400&h=400&fit=crop&auto=format&q=80"},
}

var categories = []entry{
	{"kitchen", "https://images.unsplash.com/photo-1556909114-f6e7ad7d3136?w=400&h=400&fit=crop&auto=format&q=80"},
	{"gym", "https://images.unsplash.com/photo-1434682881908-b43d0467b798?w=400&h=400&fit=crop&auto=format&q=80"},
	{"fitness", "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=400&h=400&fit=crop&auto=format&q=80"},
	{"electronics", "https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=400&h=400&fit=crop&auto=format&q=80"},
	{"phone", "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=400&h=400&fit=crop&auto=format&q=80"},
	{"audio", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&h=400&fit=crop&auto=format&q=80"},
}

// DefaultImage is returned when nothing in the tables matches.
const DefaultImage = "https://images.unsplash.com/photo-1560472354-b33ff0c44a43?w=400&h=400&fit=crop&auto=format&q=80"

// Resolver implements market.ImageResolver over the curated tables.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve finds the best image for a product title, preferring exact table
// matches over word overlaps, then the search query, then category fallbacks.
func (Resolver) Resolve(title, searchQuery string) string {
	titleLower := strings.ToLower(title)
	queryLower := strings.ToLower(searchQuery)

	for _, e := range products {
		if strings.Contains(titleLower, e.key) {
			return e.url
		}
	}

	words := strings.Fields(titleLower)
	for _, e := range products {
		for _, w := range words {
			if strings.Contains(e.key, w) {
				return e.url
			}
		}
	}

	for _, e := range products {
		if strings.Contains(queryLower, e.key) {
			return e.url
		}
	}

	for _, e := range categories {
		if strings.Contains(queryLower, e.key) || strings.Contains(titleLower, e.key) {
			return e.url
		}
	}

	return DefaultImage
}

// CategoryImage returns the image for a known category, defaulting to
// electronics.
func CategoryImage(category string) string {
	lower := strings.ToLower(category)
	for _, e := range categories {
		if e.key == lower {
			return e.url
		}
	}
	return categories[3].url
}
