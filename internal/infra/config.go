package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Sensitive values can be overridden
// through environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr          string `yaml:"addr"`
		AllowedOrigin string `yaml:"allowed_origin"`
	} `yaml:"server"`

	API struct {
		CoinGecko struct {
			BaseURL    string `yaml:"base_url"`
			APIKey     string `yaml:"api_key"`
			VsCurrency string `yaml:"vs_currency"`
			TimeoutSec int    `yaml:"timeout_sec"`
		} `yaml:"coingecko"`
	} `yaml:"api"`

	Publish struct {
		IntervalSec      int `yaml:"interval_sec"`
		CacheDurationSec int `yaml:"cache_duration_sec"`
	} `yaml:"publish"`

	Intake struct {
		ReferenceTTLSec int             `yaml:"reference_ttl_sec"`
		PriceTolerance  decimal.Decimal `yaml:"price_tolerance"`
		TotalTolerance  decimal.Decimal `yaml:"total_tolerance"`
	} `yaml:"intake"`

	Heartbeat struct {
		TimeoutSec int `yaml:"timeout_sec"`
	} `yaml:"heartbeat"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":4000"
	}
	if cfg.API.CoinGecko.BaseURL == "" {
		cfg.API.CoinGecko.BaseURL = "https://api.coingecko.com"
	}
	if cfg.API.CoinGecko.VsCurrency == "" {
		cfg.API.CoinGecko.VsCurrency = "inr"
	}
	if cfg.API.CoinGecko.TimeoutSec <= 0 {
		cfg.API.CoinGecko.TimeoutSec = 10
	}
	if cfg.Publish.IntervalSec <= 0 {
		cfg.Publish.IntervalSec = 30
	}
	if cfg.Publish.CacheDurationSec <= 0 {
		cfg.Publish.CacheDurationSec = 30
	}
	if cfg.Intake.ReferenceTTLSec <= 0 {
		cfg.Intake.ReferenceTTLSec = 60
	}
	if cfg.Intake.PriceTolerance.IsZero() {
		cfg.Intake.PriceTolerance = decimal.NewFromFloat(0.01)
	}
	if cfg.Intake.TotalTolerance.IsZero() {
		cfg.Intake.TotalTolerance = decimal.NewFromFloat(0.001)
	}
	if cfg.Heartbeat.TimeoutSec <= 0 {
		cfg.Heartbeat.TimeoutSec = 15
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !hasPrefix(c.API.CoinGecko.BaseURL, "http://") && !hasPrefix(c.API.CoinGecko.BaseURL, "https://") {
		return fmt.Errorf("invalid CoinGecko base URL: %s", c.API.CoinGecko.BaseURL)
	}
	if c.Intake.PriceTolerance.IsNegative() || c.Intake.TotalTolerance.IsNegative() {
		return fmt.Errorf("tolerances must not be negative")
	}
	// The market-price tolerance absorbs propagation delay; the total
	// tolerance only absorbs rounding noise and must be tighter.
	if c.Intake.TotalTolerance.GreaterThanOrEqual(c.Intake.PriceTolerance) {
		return fmt.Errorf("total tolerance must be tighter than price tolerance")
	}
	if c.Heartbeat.TimeoutSec <= 0 {
		return fmt.Errorf("heartbeat timeout must be positive")
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv replaces config values from environment variables when set.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("COINFEED_COINGECKO_KEY"); key != "" {
		cfg.API.CoinGecko.APIKey = key
	}
	if addr := os.Getenv("COINFEED_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("COINFEED_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}
