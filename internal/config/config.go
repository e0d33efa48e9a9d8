// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

// Config captures every configuration knob loaded via Viper.
type Config struct {
	Search    SearchConfig   `mapstructure:"search"`
	Crawler   CrawlerConfig  `mapstructure:"crawler"`
	Fetch     FetchConfig    `mapstructure:"fetch"`
	Extract   ExtractConfig  `mapstructure:"extract"`
	Sink      SinkConfig     `mapstructure:"sink"`
	Snapshots SnapshotConfig `mapstructure:"snapshots"`
	Frontier  FrontierConfig `mapstructure:"frontier"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

// SearchConfig describes what to search for and how many results to keep.
type SearchConfig struct {
	Keyword       string `mapstructure:"keyword"`
	StartURL      string `mapstructure:"start_url"`
	Category      string `mapstructure:"category"`
	MinPrice      string `mapstructure:"min_price"`
	MaxPrice      string `mapstructure:"max_price"`
	SortBy        string `mapstructure:"sort_by"`
	ResultsWanted int    `mapstructure:"results_wanted"`
}

// Params converts the search section into the run parameters consumed by the
// crawl controller.
func (s SearchConfig) Params() product.SearchParams {
	return product.SearchParams{
		Keyword:       strings.TrimSpace(s.Keyword),
		StartURL:      s.StartURL,
		Category:      s.Category,
		MinPrice:      s.MinPrice,
		MaxPrice:      s.MaxPrice,
		SortBy:        product.SortOrder(s.SortBy),
		ResultsWanted: s.ResultsWanted,
	}
}

// CrawlerConfig governs the crawl controller and its worker pool.
type CrawlerConfig struct {
	Concurrency    int `mapstructure:"concurrency"`
	RetryLimit     int `mapstructure:"retry_limit"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// FetchTimeout returns the per-page fetch budget.
func (c CrawlerConfig) FetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FetchConfig configures the fetch engine.
type FetchConfig struct {
	Engine        string  `mapstructure:"engine"`
	SettleDelayMs int     `mapstructure:"settle_delay_ms"`
	HostQPS       float64 `mapstructure:"host_qps"`
	ProxyURL      string  `mapstructure:"proxy_url"`
}

// SettleDelay returns the post-navigation settle wait for DOM fetches.
func (f FetchConfig) SettleDelay() time.Duration {
	return time.Duration(f.SettleDelayMs) * time.Millisecond
}

// ExtractConfig tunes the extraction pipeline and blocking detector.
type ExtractConfig struct {
	MaxDepth      int      `mapstructure:"max_depth"`
	DataMarkers   []string `mapstructure:"data_markers"`
	MinHTMLBytes  int      `mapstructure:"min_html_bytes"`
	BlockMarkers  []string `mapstructure:"block_markers"`
	CardSelectors []string `mapstructure:"card_selectors"`
}

// SinkConfig selects where normalized products are pushed.
type SinkConfig struct {
	OutputPath string         `mapstructure:"output_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	PubSub     PubSubConfig   `mapstructure:"pubsub"`
}

// PostgresConfig controls the optional Postgres product store.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig controls the optional Pub/Sub batch publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// SnapshotConfig controls where blocked/failed page snapshots are written.
type SnapshotConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// FrontierConfig selects the frontier backend.
type FrontierConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
}

// MetricsConfig toggles the diagnostics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadUnvalidated reads the config without validating it, so callers can
// layer CLI flag overrides on top before calling Validate.
func LoadUnvalidated(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ALISCRAPER")
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
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.keyword", "")
	v.SetDefault("search.sort_by", "default")
	v.SetDefault("search.results_wanted", 20)
	v.SetDefault("crawler.concurrency", 5)
	v.SetDefault("crawler.retry_limit", 3)
	v.SetDefault("crawler.timeout_seconds", 60)
	v.SetDefault("fetch.engine", "http")
	v.SetDefault("fetch.settle_delay_ms", 1500)
	v.SetDefault("fetch.host_qps", 2.0)
	v.SetDefault("extract.max_depth", 12)
	v.SetDefault("extract.min_html_bytes", 10000)
	v.SetDefault("sink.output_path", "products.jsonl")
	v.SetDefault("sink.postgres.table", "products")
	v.SetDefault("snapshots.enabled", false)
	v.SetDefault("snapshots.dir", "snapshots")
	v.SetDefault("snapshots.prefix", "blocked")
	v.SetDefault("frontier.backend", "memory")
	v.SetDefault("frontier.redis_key", "aliscraper:frontier")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. A failure here is
// the only run-fatal error class.
func (c Config) Validate() error {
	if err := c.Search.Params().Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.RetryLimit < 0 {
		return fmt.Errorf("crawler.retry_limit must be >= 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	switch c.Fetch.Engine {
	case "http", "browser":
	default:
		return fmt.Errorf("fetch.engine must be http or browser, got %q", c.Fetch.Engine)
	}
	if c.Extract.MaxDepth <= 0 {
		return fmt.Errorf("extract.max_depth must be > 0")
	}
	switch c.Frontier.Backend {
	case "memory":
	case "redis":
		if c.Frontier.RedisAddr == "" {
			return fmt.Errorf("frontier.redis_addr must be set when frontier.backend is redis")
		}
	default:
		return fmt.Errorf("frontier.backend must be memory or redis, got %q", c.Frontier.Backend)
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}
