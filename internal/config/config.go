// Package config provides typed application configuration loaded via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultSource             = "Tiki"
	DefaultSearchLimit        = 10
	DefaultCrawlConcurrency   = 32
	DefaultReviewPageFanout   = 20
	DefaultReviewPageSize     = 20
	DefaultMaxReviewPages     = 10
	DefaultRequestTimeout     = 15 * time.Second
	DefaultMaxRetries         = 2
	DefaultRetryBackoff       = 400 * time.Millisecond
	DefaultUpstreamRPS        = 25
	DefaultRefreshWorkers     = 4
	DefaultStaleThreshold     = 24 * time.Hour
	DefaultRefreshCronSpec    = "0 3 * * *"
	DefaultServerAddress      = ":8080"
	DefaultServerReadTimeout  = 15 * time.Second
	DefaultServerWriteTimeout = 30 * time.Second
)

// Config is the root application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Server    ServerConfig    `mapstructure:"server"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// UpstreamConfig holds marketplace API client settings.
type UpstreamConfig struct {
	Source           string        `mapstructure:"source"`
	BaseURL          string        `mapstructure:"base_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	RequestsPerSec   int           `mapstructure:"requests_per_sec"`
	ReviewPageSize   int           `mapstructure:"review_page_size"`
	ReviewPageFanout int           `mapstructure:"review_page_fanout"`
	MaxReviewPages   int           `mapstructure:"max_review_pages"`
}

// CrawlerConfig holds crawl orchestration settings.
type CrawlerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	SearchLimit int `mapstructure:"search_limit"`
}

// SentimentConfig holds embedding service and anchor phrase settings.
type SentimentConfig struct {
	EmbeddingURL    string   `mapstructure:"embedding_url"`
	PositiveAnchors []string `mapstructure:"positive_anchors"`
	NegativeAnchors []string `mapstructure:"negative_anchors"`
}

// RefreshConfig holds batch refresh scheduler settings.
type RefreshConfig struct {
	Workers        int           `mapstructure:"workers"`
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	CronSpec       string        `mapstructure:"cron_spec"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load unmarshals the viper-backed configuration into a Config.
// Defaults and environment bindings are set up by the CLI root command
// before this is called.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Upstream.Source == "" {
		c.Upstream.Source = DefaultSource
	}
	if c.Upstream.RequestTimeout <= 0 {
		c.Upstream.RequestTimeout = DefaultRequestTimeout
	}
	if c.Upstream.MaxRetries <= 0 {
		c.Upstream.MaxRetries = DefaultMaxRetries
	}
	if c.Upstream.RetryBackoff <= 0 {
		c.Upstream.RetryBackoff = DefaultRetryBackoff
	}
	if c.Upstream.RequestsPerSec <= 0 {
		c.Upstream.RequestsPerSec = DefaultUpstreamRPS
	}
	if c.Upstream.ReviewPageSize <= 0 {
		c.Upstream.ReviewPageSize = DefaultReviewPageSize
	}
	if c.Upstream.ReviewPageFanout <= 0 {
		c.Upstream.ReviewPageFanout = DefaultReviewPageFanout
	}
	if c.Upstream.MaxReviewPages <= 0 {
		c.Upstream.MaxReviewPages = DefaultMaxReviewPages
	}
	if c.Crawler.Concurrency <= 0 {
		c.Crawler.Concurrency = DefaultCrawlConcurrency
	}
	if c.Crawler.SearchLimit <= 0 {
		c.Crawler.SearchLimit = DefaultSearchLimit
	}
	if c.Refresh.Workers <= 0 {
		c.Refresh.Workers = DefaultRefreshWorkers
	}
	if c.Refresh.StaleThreshold <= 0 {
		c.Refresh.StaleThreshold = DefaultStaleThreshold
	}
	if c.Refresh.CronSpec == "" {
		c.Refresh.CronSpec = DefaultRefreshCronSpec
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultServerAddress
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
}
