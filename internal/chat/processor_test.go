package chat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marketminer/marketminer/internal/market"
)

func newTestProcessor() *Processor {
	return NewProcessor(rand.New(rand.NewSource(42)))
}

func TestProcess_ExtractsIntent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    Intent
	}{
		{"find me wireless earbuds", IntentSearch},
		{"compare airpods vs soundcore", IntentCompare},
		{"what is trending in kitchen gadgets", IntentTrending},
		{"cheap laptop options", IntentRecommend}, // "laptop" contains "top"
		{"budget laptops only", IntentRecommend},
		{"anything about yoga mats", IntentSearch},
	}

	p := newTestProcessor()
	for _, tt := range tests {
		got := p.Process(tt.message)
		require.Equal(t, tt.want, got.Intent, "message %q", tt.message)
	}
}

func TestProcess_IntentOrderPrefersEarlierTable(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()
	// "recommend" alone resolves to recommend; adding "find" flips it to
	// search because the search keywords are evaluated first.
	require.Equal(t, IntentRecommend, p.Process("recommend earbuds").Intent)
	require.Equal(t, IntentSearch, p.Process("find and recommend earbuds").Intent)
}

func TestProcess_ExtractsPrices(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()

	t.Run("under sets max", func(t *testing.T) {
		t.Parallel()
		got := p.Process("wireless earbuds under $50")
		require.NotNil(t, got.Prices)
		require.Nil(t, got.Prices.Min)
		require.NotNil(t, got.Prices.Max)
		require.Equal(t, 50.0, *got.Prices.Max)
	})

	t.Run("over sets min", func(t *testing.T) {
		t.Parallel()
		got := p.Process("headphones over 100")
		require.NotNil(t, got.Prices)
		require.NotNil(t, got.Prices.Min)
		require.Equal(t, 100.0, *got.Prices.Min)
	})

	t.Run("between sets both", func(t *testing.T) {
		t.Parallel()
		got := p.Process("laptop between $300 and $800")
		require.NotNil(t, got.Prices)
		require.Equal(t, 300.0, *got.Prices.Min)
		require.Equal(t, 800.0, *got.Prices.Max)
	})

	t.Run("no constraint yields nil", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, p.Process("find earbuds").Prices)
	})
}

func TestProcess_ExtractsPlatforms(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()

	got := p.Process("search amazon and shopify for earbuds")
	require.Equal(t, []market.Platform{market.PlatformAmazon, market.PlatformShopify}, got.Platforms)

	// No platform mentioned defaults to Amazon and eBay.
	got = p.Process("find earbuds")
	require.Equal(t, []market.Platform{market.PlatformAmazon, market.PlatformEBay}, got.Platforms)
}

func TestProcess_SearchQuery(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()

	// Known product keyword wins.
	require.Equal(t, "earbuds", p.Process("find me some earbuds").SearchQuery)

	// Otherwise stop words drop out and three substantive terms remain.
	got := p.Process("find me the fanciest standing desk converter today")
	require.Equal(t, "fanciest standing desk", got.SearchQuery)
}

func TestProcess_ProductTypeAfterDeterminer(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()
	got := p.Process("looking for slippers")
	require.Equal(t, "slippers", got.ProductType)
}

func TestRespond(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()
	q := p.Process("find me wireless earbuds under $50")

	resp := p.Respond(q)
	require.Contains(t, resp, "earbuds")
	require.Contains(t, resp, "under $50")
}

func TestFeatures(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()

	got := p.Features("Wireless Bluetooth Waterproof Premium Speaker")
	require.Equal(t, []string{"Wireless", "Bluetooth", "Waterproof"}, got)

	generic := p.Features("Plain Product")
	require.Len(t, generic, 2)
	require.NotEqual(t, generic[0], generic[1])
	for _, f := range generic {
		require.Contains(t, genericFeatures, f)
	}
}
