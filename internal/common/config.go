// Package common provides shared utilities for Argus
package common

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Argus
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
	Risk        RiskConfig    `toml:"risk"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	Path string `toml:"path"` // BadgerHold data directory
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Enabled bool   `toml:"enabled"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// RiskConfig holds risk pipeline configuration
type RiskConfig struct {
	LookbackDays    int    `toml:"lookback_days"`    // default history window for full reports
	BenchmarkTicker string `toml:"benchmark_ticker"` // index used for beta computation
	RefreshInterval string `toml:"refresh_interval"` // background re-score interval ("0" disables)
	StreamDelay     string `toml:"stream_delay"`     // inter-frame delay on the streaming path
}

// GetRefreshInterval parses the refresh interval; zero disables the scheduler.
func (c *RiskConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 0
	}
	return d
}

// GetStreamDelay parses the inter-frame stream delay.
func (c *RiskConfig) GetStreamDelay() time.Duration {
	d, err := time.ParseDuration(c.StreamDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetLookbackDays returns the configured lookback or the default (90 days).
func (c *RiskConfig) GetLookbackDays() int {
	if c.LookbackDays > 0 {
		return c.LookbackDays
	}
	return 90
}

// GetBenchmarkTicker returns the configured benchmark or the default.
func (c *RiskConfig) GetBenchmarkTicker() string {
	if c.BenchmarkTicker != "" {
		return c.BenchmarkTicker
	}
	return "GSPC.INDX"
}

// LoadConfig reads configuration from a TOML file, applying defaults and
// environment overrides for secrets.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model:   "gemini-3-flash-preview",
				Enabled: true,
				Timeout: "60s",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Risk: RiskConfig{
			LookbackDays:    90,
			BenchmarkTicker: "GSPC.INDX",
			RefreshInterval: "0",
			StreamDelay:     "100ms",
		},
	}
}

// applyEnvOverrides lets API keys come from the environment so they stay
// out of config files.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARGUS_EODHD_API_KEY"); v != "" {
		cfg.Clients.EODHD.APIKey = v
	}
	if v := os.Getenv("ARGUS_GEMINI_API_KEY"); v != "" {
		cfg.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("ARGUS_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("ARGUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
