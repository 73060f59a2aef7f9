// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Trends  TrendsConfig  `mapstructure:"trends"`
	Cache   CacheConfig   `mapstructure:"cache"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig bounds outbound retrieval so the total-function fetch and trend
// contracts hold in finite time.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
}

// FetcherConfig governs the listing fetch pipeline.
type FetcherConfig struct {
	LiveFloor         int  `mapstructure:"live_floor"`
	MaxResultsDefault int  `mapstructure:"max_results_default"`
	HeadlessEnabled   bool `mapstructure:"headless_enabled"`
	HeadlessNavSec    int  `mapstructure:"headless_nav_timeout_seconds"`
}

// TrendsConfig governs the trend engine.
type TrendsConfig struct {
	Endpoint         string  `mapstructure:"endpoint"`
	Band             float64 `mapstructure:"band"`
	TimeframeDefault string  `mapstructure:"timeframe_default"`
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	FreshnessHours int `mapstructure:"freshness_hours"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	ListingTable string `mapstructure:"listing_table"`
	CacheTable   string `mapstructure:"cache_table"`
	MaxConns     int32  `mapstructure:"max_conns"`
}

// ArchiveConfig sets where raw fetched search pages are stored.
type ArchiveConfig struct {
	Provider    string `mapstructure:"provider"` // gcs, local, memory
	GCSBucket   string `mapstructure:"gcs_bucket"`
	LocalDir    string `mapstructure:"local_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for report-completed notifications. An empty
// project selects the in-process publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKETMINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agent", "marketminer-bot/0.1")
	v.SetDefault("http.rps", 2.0)
	v.SetDefault("http.burst", 2)
	v.SetDefault("fetcher.live_floor", 5)
	v.SetDefault("fetcher.max_results_default", 20)
	v.SetDefault("fetcher.headless_enabled", false)
	v.SetDefault("fetcher.headless_nav_timeout_seconds", 25)
	v.SetDefault("trends.band", 0.10)
	v.SetDefault("trends.timeframe_default", "today 12-m")
	v.SetDefault("cache.freshness_hours", 24)
	v.SetDefault("db.listing_table", "products")
	v.SetDefault("db.cache_table", "search_cache")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.provider", "memory")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RPS < 0 {
		return fmt.Errorf("http.rps must be >= 0")
	}
	if c.Fetcher.LiveFloor < 0 {
		return fmt.Errorf("fetcher.live_floor must be >= 0")
	}
	if c.Fetcher.MaxResultsDefault <= 0 {
		return fmt.Errorf("fetcher.max_results_default must be > 0")
	}
	if c.Trends.Band <= 0 || c.Trends.Band >= 1 {
		return fmt.Errorf("trends.band must be in (0, 1)")
	}
	if c.Cache.FreshnessHours <= 0 {
		return fmt.Errorf("cache.freshness_hours must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Provider {
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set when archive.provider is local")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// FreshnessWindow is the maximum cache entry age still considered valid.
func (c Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Cache.FreshnessHours) * time.Hour
}
