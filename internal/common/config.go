// Package common provides shared utilities for rebal
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for rebal
type Config struct {
	Environment     string          `toml:"environment"`
	Portfolios      []string        `toml:"portfolios"`
	DisplayCurrency string          `toml:"display_currency"` // ISO 4217 code for report totals (default "KRW")
	Locale          string          `toml:"locale"`           // "ko" or "en"
	Server          ServerConfig    `toml:"server"`
	Storage         StorageConfig   `toml:"storage"`
	Clients         ClientsConfig   `toml:"clients"`
	Scheduler       SchedulerConfig `toml:"scheduler"`
	Advisor         AdvisorConfig   `toml:"advisor"`
	Logging         LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DefaultPortfolio returns the first portfolio in the list (the default), or empty string.
func (c *Config) DefaultPortfolio() string {
	if len(c.Portfolios) > 0 {
		return c.Portfolios[0]
	}
	return ""
}

// StorageConfig selects and configures the analysis history backend.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "file" or "surrealdb"
	Path      string `toml:"path"`    // file backend root
	Address   string `toml:"address"` // surrealdb websocket address
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Backend BackendConfig `toml:"backend"`
	Gemini  GeminiConfig  `toml:"gemini"`
}

// BackendConfig holds the holdings backend API configuration
type BackendConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	RateLimit  int    `toml:"rate_limit"`
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
	StreamURL  string `toml:"stream_url"` // websocket price stream, empty disables streaming
}

// GetTimeout parses and returns the timeout duration
func (c *BackendConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// SchedulerConfig holds background refresh configuration
type SchedulerConfig struct {
	Enabled     bool   `toml:"enabled"`
	RefreshCron string `toml:"refresh_cron"` // six-field cron spec (with seconds)
}

// AdvisorConfig tunes the advisory service around the engine
type AdvisorConfig struct {
	MemoSize     int `toml:"memo_size"`     // memoized analyses kept in memory
	HistoryLimit int `toml:"history_limit"` // stored records kept per portfolio
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "json" or "console"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		DisplayCurrency: "KRW",
		Locale:          "ko",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "data/analysis",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "rebal",
			Database:  "rebal",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			Backend: BackendConfig{
				BaseURL:    "http://localhost:3000/api",
				RateLimit:  5,
				Timeout:    "30s",
				MaxRetries: 3,
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:     false,
			RefreshCron: "0 */15 * * * *",
		},
		Advisor: AdvisorConfig{
			MemoSize:     256,
			HistoryLimit: 100,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/rebal.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory, if present, is loaded first.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REBAL_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("REBAL_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("REBAL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("REBAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if locale := os.Getenv("REBAL_LOCALE"); locale != "" {
		config.Locale = strings.ToLower(locale)
	}

	if dc := os.Getenv("REBAL_DISPLAY_CURRENCY"); dc != "" {
		config.DisplayCurrency = strings.ToUpper(dc)
	}

	// Storage
	if v := os.Getenv("REBAL_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REBAL_DATA_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("REBAL_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("REBAL_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("REBAL_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// Clients
	if v := os.Getenv("REBAL_BACKEND_URL"); v != "" {
		config.Clients.Backend.BaseURL = v
	}
	if v := os.Getenv("REBAL_BACKEND_API_KEY"); v != "" {
		config.Clients.Backend.APIKey = v
	}
	if v := os.Getenv("REBAL_BACKEND_STREAM_URL"); v != "" {
		config.Clients.Backend.StreamURL = v
	}
	for _, name := range []string{"REBAL_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.Gemini.APIKey = v
			break
		}
	}

	if v := os.Getenv("REBAL_REFRESH_CRON"); v != "" {
		config.Scheduler.RefreshCron = v
		config.Scheduler.Enabled = true
	}

	if dp := os.Getenv("REBAL_DEFAULT_PORTFOLIO"); dp != "" {
		// Set as first portfolio (default), preserving any others
		filtered := []string{dp}
		for _, p := range config.Portfolios {
			if p != dp {
				filtered = append(filtered, p)
			}
		}
		config.Portfolios = filtered
	}
}

// Validate normalises the config and rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "file":
		c.Storage.Backend = "file"
	case "surrealdb":
	default:
		return fmt.Errorf("unknown storage backend %q (want file or surrealdb)", c.Storage.Backend)
	}

	if c.Locale != "ko" && c.Locale != "en" {
		c.Locale = "ko"
	}

	c.DisplayCurrency = strings.ToUpper(strings.TrimSpace(c.DisplayCurrency))
	if len(c.DisplayCurrency) != 3 {
		c.DisplayCurrency = "KRW"
	}

	if c.Advisor.MemoSize <= 0 {
		c.Advisor.MemoSize = 256
	}
	if c.Advisor.HistoryLimit <= 0 {
		c.Advisor.HistoryLimit = 100
	}
	if c.Clients.Backend.MaxRetries < 0 {
		c.Clients.Backend.MaxRetries = 0
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Redacted returns a copy of the config with secrets masked, safe to expose over the API.
func (c *Config) Redacted() Config {
	out := *c
	out.Portfolios = append([]string(nil), c.Portfolios...)
	out.Storage.Password = mask(c.Storage.Password)
	out.Clients.Backend.APIKey = mask(c.Clients.Backend.APIKey)
	out.Clients.Gemini.APIKey = mask(c.Clients.Gemini.APIKey)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
