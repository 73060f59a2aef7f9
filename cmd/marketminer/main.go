// Package main wires together the market analysis service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/marketminer/marketminer/internal/analyzer"
	"github.com/marketminer/marketminer/internal/api"
	"github.com/marketminer/marketminer/internal/chat"
	"github.com/marketminer/marketminer/internal/clock/system"
	"github.com/marketminer/marketminer/internal/config"
	"github.com/marketminer/marketminer/internal/fetcher"
	collyfetcher "github.com/marketminer/marketminer/internal/fetcher/colly"
	headlessfetcher "github.com/marketminer/marketminer/internal/fetcher/headless"
	"github.com/marketminer/marketminer/internal/fetcher/ratelimit"
	"github.com/marketminer/marketminer/internal/id/uuid"
	"github.com/marketminer/marketminer/internal/images"
	"github.com/marketminer/marketminer/internal/logging"
	"github.com/marketminer/marketminer/internal/market"
	"github.com/marketminer/marketminer/internal/metrics"
	memorypublisher "github.com/marketminer/marketminer/internal/publisher/memory"
	pubsubpublisher "github.com/marketminer/marketminer/internal/publisher/pubsub"
	"github.com/marketminer/marketminer/internal/storage/gcs"
	"github.com/marketminer/marketminer/internal/storage/local"
	memorystorage "github.com/marketminer/marketminer/internal/storage/memory"
	"github.com/marketminer/marketminer/internal/storage/postgres"
	"github.com/marketminer/marketminer/internal/trends"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := system.New()
	idGen := uuid.New()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		listingStore market.ListingStore
		searchCache  market.SearchCache
		dbCheck      func(context.Context) error
	)
	if cfg.DB.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		defer pool.Close()

		listingStore, err = postgres.NewListingStore(pool, cfg.DB.ListingTable)
		if err != nil {
			logger.Fatal("listing store init failed", zap.Error(err))
		}
		searchCache, err = postgres.NewCacheStore(pool, postgres.CacheStoreConfig{
			Table:     cfg.DB.CacheTable,
			Freshness: cfg.FreshnessWindow(),
		}, clock)
		if err != nil {
			logger.Fatal("cache store init failed", zap.Error(err))
		}
		dbCheck = pool.Ping
	} else {
		logger.Info("no database configured, using in-memory stores")
		listingStore = memorystorage.NewListingStore()
		searchCache = memorystorage.NewSearchCache(cfg.FreshnessWindow(), clock)
	}

	archive, err := newArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	var publisher market.Publisher
	if cfg.PubSub.ProjectID != "" {
		client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub init failed", zap.Error(err))
		}
		defer client.Close()
		pub := pubsubpublisher.New(client)
		defer pub.Stop()
		publisher = pub
	} else {
		publisher = memorypublisher.New()
	}

	pages := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		Limiter:   ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.RPS, Burst: cfg.HTTP.Burst}),
	})
	var renderer fetcher.PageFetcher
	if cfg.Fetcher.HeadlessEnabled {
		chromeRenderer, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(cfg.Fetcher.HeadlessNavSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless renderer init failed", zap.Error(err))
		} else {
			defer chromeRenderer.Close()
			renderer = chromeRenderer
		}
	}

	gen := fetcher.NewGenerator(rng, clock)
	fetch := fetcher.New(
		fetcher.DefaultRules(),
		pages,
		renderer,
		gen,
		archive,
		clock,
		fetcher.Config{
			LiveFloor:          cfg.Fetcher.LiveFloor,
			Timeout:            cfg.FetchTimeout(),
			ArchivePrefix:      cfg.Archive.Prefix,
			ArchiveContentType: cfg.Archive.ContentType,
		},
		logger.Named("fetcher"),
	)

	var trendsClient trends.Client
	if cfg.Trends.Endpoint != "" {
		trendsClient = trends.NewHTTPClient(cfg.Trends.Endpoint, cfg.FetchTimeout())
	}
	trendEngine := trends.New(
		trendsClient,
		rand.New(rand.NewSource(time.Now().UnixNano()+1)),
		clock,
		trends.Config{Band: cfg.Trends.Band},
		logger.Named("trends"),
	)

	analyze := analyzer.New(
		searchCache,
		listingStore,
		fetch,
		trendEngine,
		images.NewResolver(),
		publisher,
		idGen,
		clock,
		analyzer.Config{
			MaxResultsDefault: cfg.Fetcher.MaxResultsDefault,
			EventTopic:        cfg.PubSub.TopicName,
			Timeframe:         cfg.Trends.TimeframeDefault,
		},
		logger.Named("analyzer"),
	)

	apiServer := api.NewServer(api.Deps{
		Analyzer:  analyze,
		Trends:    trendEngine,
		Chat:      chat.NewProcessor(rand.New(rand.NewSource(time.Now().UnixNano()+2))),
		Generator: gen,
		DBCheck:   dbCheck,
	}, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newArchive selects the page archive backend from config.
func newArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (market.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Archive.GCSBucket})
	case "local":
		return local.New(local.Config{BaseDir: cfg.Archive.LocalDir})
	default:
		logger.Info("using in-memory page archive")
		return memorystorage.NewBlobStore(), nil
	}
}
