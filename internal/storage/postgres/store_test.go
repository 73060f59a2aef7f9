package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/marketminer/marketminer/internal/market"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestSaveListingInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewListingStore(mock, "products")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	listing := market.Listing{
		Title:        "Wireless Earbuds Pro",
		Price:        59.99,
		Rating:       4.5,
		ReviewsCount: 1234,
		Platform:     market.PlatformAmazon,
		Seller:       "Amazon Seller",
		URL:          "https://amazon.com/dp/B01",
		ImageURL:     "https://img.example.com/b01.jpg",
		SearchQuery:  "wireless earbuds",
		CreatedAt:    now,
	}

	mock.ExpectQuery("INSERT INTO products").
		WithArgs(
			listing.Title,
			listing.Price,
			listing.Rating,
			listing.ReviewsCount,
			"Amazon",
			listing.Seller,
			listing.URL,
			listing.ImageURL,
			listing.SearchQuery,
			listing.CreatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := store.SaveListing(context.Background(), listing)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveListingRejectsMissingTitle(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewListingStore(mock, "products")
	require.NoError(t, err)

	_, err = store.SaveListing(context.Background(), market.Listing{})
	require.Error(t, err)
}

func TestNewListingStoreValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewListingStore(mock, "products; DROP TABLE products")
	require.Error(t, err)
}

func TestCacheGetReturnsFreshEntry(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewCacheStore(mock, CacheStoreConfig{Table: "search_cache", Freshness: 24 * time.Hour}, fixedClock{now: now})
	require.NoError(t, err)

	payload := []byte(`[{"title":"Wireless Earbuds Pro","price":59.99,"platform":"Amazon"}]`)
	mock.ExpectQuery("SELECT payload, created_at").
		WithArgs("wireless earbuds", "Amazon").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, now.Add(-1*time.Hour)))

	listings, ok, err := store.Get(context.Background(), "wireless earbuds", market.PlatformAmazon)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, listings, 1)
	require.Equal(t, "Wireless Earbuds Pro", listings[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetMissesStaleEntry(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewCacheStore(mock, CacheStoreConfig{Freshness: 24 * time.Hour}, fixedClock{now: now})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload, created_at").
		WithArgs("wireless earbuds", "Amazon").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at"}).
			AddRow([]byte(`[]`), now.Add(-25*time.Hour)))

	_, ok, err := store.Get(context.Background(), "wireless earbuds", market.PlatformAmazon)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetMissesAbsentKey(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewCacheStore(mock, CacheStoreConfig{}, fixedClock{now: now})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload, created_at").
		WithArgs("nothing", "eBay").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at"}))

	_, ok, err := store.Get(context.Background(), "nothing", market.PlatformEBay)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachePutAppendsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewCacheStore(mock, CacheStoreConfig{}, fixedClock{now: now})
	require.NoError(t, err)

	listings := []market.Listing{{Title: "Wireless Earbuds Pro", Platform: market.PlatformAmazon}}

	mock.ExpectExec("INSERT INTO search_cache").
		WithArgs("wireless earbuds", "Amazon", pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Put(context.Background(), "wireless earbuds", market.PlatformAmazon, listings)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
