package market

// FilterByPrice applies an optional price post-filter over listings. A
// listing is excluded when its price falls below Min or above Max. A nil
// range returns the input unchanged.
func FilterByPrice(listings []Listing, prices *PriceRange) []Listing {
	if prices == nil || (prices.Min == nil && prices.Max == nil) {
		return listings
	}
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if prices.Min != nil && l.Price < *prices.Min {
			continue
		}
		if prices.Max != nil && l.Price > *prices.Max {
			continue
		}
		out = append(out, l)
	}
	return out
}
