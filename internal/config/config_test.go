package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	scanerrors "github.com/memecoin-scanner/internal/errors"
)

func TestLoadConfig(t *testing.T) {
	// Set some test environment variables
	if err := os.Setenv("CMC_TOKEN", "cmc-key"); err != nil {
		t.Fatalf("Failed to set CMC_TOKEN: %v", err)
	}
	if err := os.Setenv("SCAN_VOLUME_THRESHOLD", "75000.5"); err != nil {
		t.Fatalf("Failed to set SCAN_VOLUME_THRESHOLD: %v", err)
	}
	if err := os.Setenv("DUNE_POLL_INTERVAL", "2s"); err != nil {
		t.Fatalf("Failed to set DUNE_POLL_INTERVAL: %v", err)
	}
	if err := os.Setenv("SCAN_TARGET_CHAIN", "Solana"); err != nil {
		t.Fatalf("Failed to set SCAN_TARGET_CHAIN: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("CMC_TOKEN")
		_ = os.Unsetenv("SCAN_VOLUME_THRESHOLD")
		_ = os.Unsetenv("DUNE_POLL_INTERVAL")
		_ = os.Unsetenv("SCAN_TARGET_CHAIN")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Listings.APIKey != "cmc-key" {
		t.Errorf("Listings.APIKey = %v, want %v", cfg.Listings.APIKey, "cmc-key")
	}

	if cfg.Scan.VolumeThreshold != 75000.5 {
		t.Errorf("Scan.VolumeThreshold = %v, want %v", cfg.Scan.VolumeThreshold, 75000.5)
	}

	if cfg.Analytics.PollInterval != 2*time.Second {
		t.Errorf("Analytics.PollInterval = %v, want %v", cfg.Analytics.PollInterval, 2*time.Second)
	}

	if cfg.Scan.TargetChain != "solana" {
		t.Errorf("Scan.TargetChain = %v, want %v", cfg.Scan.TargetChain, "solana")
	}

	// Defaults mirror the reference scan parameters
	if cfg.Listings.Limit != 5000 {
		t.Errorf("Listings.Limit = %v, want %v", cfg.Listings.Limit, 5000)
	}
	if cfg.Analytics.MaxRetries != 50 {
		t.Errorf("Analytics.MaxRetries = %v, want %v", cfg.Analytics.MaxRetries, 50)
	}
	if cfg.Scan.RateLimitInterval != 200*time.Millisecond {
		t.Errorf("Scan.RateLimitInterval = %v, want %v", cfg.Scan.RateLimitInterval, 200*time.Millisecond)
	}
	if cfg.Scan.MaxListingAge != 30*24*time.Hour {
		t.Errorf("Scan.MaxListingAge = %v, want %v", cfg.Scan.MaxListingAge, 30*24*time.Hour)
	}
}

func validConfig() *Config {
	return &Config{
		Listings:  ListingsConfig{APIKey: "cmc", Limit: 5000},
		Analytics: AnalyticsConfig{Enabled: true, APIKey: "dune", QueryID: "4304509", MaxRetries: 50, PollInterval: 5 * time.Second},
		Scan: ScanConfig{
			VolumeThreshold:  50000,
			MinPriceIncrease: 20,
			MaxPriceIncrease: 300,
			MaxListingAge:    30 * 24 * time.Hour,
			TargetChain:      "solana",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing listings key",
			mutate:  func(c *Config) { c.Listings.APIKey = "" },
			wantErr: "CMC_TOKEN is not set",
		},
		{
			name:    "missing analytics key",
			mutate:  func(c *Config) { c.Analytics.APIKey = "" },
			wantErr: "DUNE_TOKEN is not set",
		},
		{
			name: "analytics key not needed when analysis is disabled",
			mutate: func(c *Config) {
				c.Analytics.Enabled = false
				c.Analytics.APIKey = ""
			},
		},
		{
			name:    "inverted price range",
			mutate:  func(c *Config) { c.Scan.MinPriceIncrease = 400 },
			wantErr: "exceeds SCAN_MAX_PRICE_INCREASE",
		},
		{
			name:    "non-positive retry budget",
			mutate:  func(c *Config) { c.Analytics.MaxRetries = 0 },
			wantErr: "DUNE_MAX_RETRIES must be positive",
		},
		{
			name:    "negative volume threshold",
			mutate:  func(c *Config) { c.Scan.VolumeThreshold = -1 },
			wantErr: "SCAN_VOLUME_THRESHOLD cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !errors.Is(err, scanerrors.ErrConfig) {
				t.Errorf("Validate() error = %v, want a config error", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAnalytics(t *testing.T) {
	cfg := validConfig()
	cfg.Listings.APIKey = ""
	if err := cfg.ValidateAnalytics(); err != nil {
		t.Fatalf("ValidateAnalytics() error = %v, want nil without a listings key", err)
	}

	cfg.Analytics.QueryID = ""
	err := cfg.ValidateAnalytics()
	if !errors.Is(err, scanerrors.ErrConfig) {
		t.Fatalf("ValidateAnalytics() error = %v, want a config error", err)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{
			name:         "returns integer when valid",
			key:          "TEST_INT",
			defaultValue: 100,
			envValue:     "200",
			want:         200,
		},
		{
			name:         "returns default when invalid",
			key:          "TEST_INT_INVALID",
			defaultValue: 100,
			envValue:     "invalid",
			want:         100,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_NOTSET",
			defaultValue: 100,
			envValue:     "",
			want:         100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnvAsInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns duration when valid",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default when invalid",
			key:          "TEST_DURATION_INVALID",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOTSET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnvAsDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "20.5")
	t.Setenv("TEST_FLOAT_INVALID", "twenty")

	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 20.5 {
		t.Errorf("getEnvAsFloat() = %v, want %v", got, 20.5)
	}
	if got := getEnvAsFloat("TEST_FLOAT_INVALID", 1); got != 1 {
		t.Errorf("getEnvAsFloat() = %v, want %v", got, 1)
	}
	if got := getEnvAsFloat("TEST_FLOAT_NOTSET", 3); got != 3 {
		t.Errorf("getEnvAsFloat() = %v, want %v", got, 3)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_BOOL_INVALID", "nope")

	if got := getEnvAsBool("TEST_BOOL", true); got != false {
		t.Errorf("getEnvAsBool() = %v, want %v", got, false)
	}
	if got := getEnvAsBool("TEST_BOOL_INVALID", true); got != true {
		t.Errorf("getEnvAsBool() = %v, want %v", got, true)
	}
}
