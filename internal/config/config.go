// Package config provides configuration management for the memecoin scanner.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	scanerrors "github.com/memecoin-scanner/internal/errors"
)

// Config holds all application configuration
type Config struct {
	Listings  ListingsConfig
	Analytics AnalyticsConfig
	Scan      ScanConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
}

// ListingsConfig holds CoinMarketCap API configuration
type ListingsConfig struct {
	APIKey  string
	BaseURL string
	Limit   int
	Timeout time.Duration
}

// AnalyticsConfig holds Dune API configuration
type AnalyticsConfig struct {
	Enabled      bool
	APIKey       string
	BaseURL      string
	QueryID      string
	MaxRetries   int
	PollInterval time.Duration
	Timeout      time.Duration
}

// ScanConfig holds the selection criteria and pacing of a scan
type ScanConfig struct {
	VolumeThreshold   float64
	MinPriceIncrease  float64
	MaxPriceIncrease  float64
	MaxListingAge     time.Duration
	TargetChain       string
	RateLimitInterval time.Duration
	WatchInterval     time.Duration
}

// RedisConfig holds Redis configuration. An empty Addr disables the metadata cache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MetadataTTL time.Duration
}

// MetricsConfig holds the listen address of the HTTP surface; empty disables it
type MetricsConfig struct {
	Addr string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional - environment variables can be set directly)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Listings: ListingsConfig{
			APIKey:  getEnv("CMC_TOKEN", ""),
			BaseURL: getEnv("CMC_BASE_URL", "https://pro-api.coinmarketcap.com"),
			Limit:   getEnvAsInt("CMC_LISTINGS_LIMIT", 5000),
			Timeout: getEnvAsDuration("CMC_TIMEOUT", 30*time.Second),
		},
		Analytics: AnalyticsConfig{
			Enabled:      getEnvAsBool("ANALYTICS_ENABLED", true),
			APIKey:       getEnv("DUNE_TOKEN", ""),
			BaseURL:      getEnv("DUNE_BASE_URL", "https://api.dune.com/api/v1"),
			QueryID:      getEnv("DUNE_QUERY_ID", "4304509"),
			MaxRetries:   getEnvAsInt("DUNE_MAX_RETRIES", 50),
			PollInterval: getEnvAsDuration("DUNE_POLL_INTERVAL", 5*time.Second),
			Timeout:      getEnvAsDuration("DUNE_TIMEOUT", 30*time.Second),
		},
		Scan: ScanConfig{
			VolumeThreshold:   getEnvAsFloat("SCAN_VOLUME_THRESHOLD", 50000),
			MinPriceIncrease:  getEnvAsFloat("SCAN_MIN_PRICE_INCREASE", 20),
			MaxPriceIncrease:  getEnvAsFloat("SCAN_MAX_PRICE_INCREASE", 300),
			MaxListingAge:     getEnvAsDuration("SCAN_MAX_LISTING_AGE", 30*24*time.Hour),
			TargetChain:       strings.ToLower(getEnv("SCAN_TARGET_CHAIN", "solana")),
			RateLimitInterval: getEnvAsDuration("SCAN_RATE_LIMIT_INTERVAL", 200*time.Millisecond),
			WatchInterval:     getEnvAsDuration("SCAN_WATCH_INTERVAL", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			MetadataTTL: getEnvAsDuration("REDIS_METADATA_TTL", 6*time.Hour),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return config, nil
}

// Validate checks credentials and numeric ranges.
// Missing credentials are fatal at startup; the analytics key is only required
// while analysis is enabled.
func (c *Config) Validate() error {
	if c.Listings.APIKey == "" {
		return scanerrors.NewConfigError("CMC_TOKEN is not set")
	}
	if c.Listings.Limit <= 0 {
		return scanerrors.NewConfigError("CMC_LISTINGS_LIMIT must be positive")
	}

	if c.Analytics.Enabled {
		if err := c.ValidateAnalytics(); err != nil {
			return err
		}
	}

	if c.Scan.VolumeThreshold < 0 {
		return scanerrors.NewConfigError("SCAN_VOLUME_THRESHOLD cannot be negative")
	}
	if c.Scan.MinPriceIncrease > c.Scan.MaxPriceIncrease {
		return scanerrors.NewConfigError(fmt.Sprintf(
			"SCAN_MIN_PRICE_INCREASE (%.2f) exceeds SCAN_MAX_PRICE_INCREASE (%.2f)",
			c.Scan.MinPriceIncrease, c.Scan.MaxPriceIncrease))
	}
	if c.Scan.MaxListingAge <= 0 {
		return scanerrors.NewConfigError("SCAN_MAX_LISTING_AGE must be positive")
	}
	if c.Scan.TargetChain == "" {
		return scanerrors.NewConfigError("SCAN_TARGET_CHAIN is not set")
	}

	return nil
}

// ValidateAnalytics checks the analytics settings alone, for commands that
// never touch the listings provider.
func (c *Config) ValidateAnalytics() error {
	if c.Analytics.APIKey == "" {
		return scanerrors.NewConfigError("DUNE_TOKEN is not set")
	}
	if c.Analytics.QueryID == "" {
		return scanerrors.NewConfigError("DUNE_QUERY_ID is not set")
	}
	if c.Analytics.MaxRetries <= 0 {
		return scanerrors.NewConfigError("DUNE_MAX_RETRIES must be positive")
	}
	if c.Analytics.PollInterval < 0 {
		return scanerrors.NewConfigError("DUNE_POLL_INTERVAL cannot be negative")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
