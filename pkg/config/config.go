// Package config provides configuration loading for the InvestPro dashboard.
// It loads settings from environment variables and, when a database is
// configured, overrides a few of them from the config table.
package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Config holds all application configuration
type Config struct {
	// API keys (from environment, optional)
	GeminiAPIKey    string
	AnthropicAPIKey string
	BrapiToken      string

	// Insight settings
	InsightProvider string
	InsightModel    string
	InsightLanguage string
	InsightTimeout  time.Duration
	InsightCacheTTL time.Duration

	// Refresh cycle
	RefreshInterval  time.Duration
	SimulatedLatency time.Duration

	// Backing services (optional)
	DatabaseURL string
	RedisAddr   string
	HealthURL   string
	HTTPAddr    string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

// InsightAPIKey returns the key of the configured insight provider
func (c *Config) InsightAPIKey() string {
	if c.InsightProvider == ProviderClaude {
		return c.AnthropicAPIKey
	}
	return c.GeminiAPIKey
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		BrapiToken:      os.Getenv("BRAPI_TOKEN"),
		InsightModel:    os.Getenv("INSIGHT_MODEL"),
		InsightLanguage: getEnv("INSIGHT_LANGUAGE", "Brazilian Portuguese"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		HealthURL:       os.Getenv("HEALTH_URL"),
		HTTPAddr:        getEnv("HTTP_ADDR", "127.0.0.1:8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		LogFile:         getEnv("LOG_FILE", "investpro.log"),
	}

	cfg.InsightProvider = strings.ToLower(getEnv("INSIGHT_PROVIDER", ProviderGemini))
	if cfg.InsightProvider != ProviderGemini && cfg.InsightProvider != ProviderClaude {
		return nil, fmt.Errorf("INSIGHT_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderClaude, cfg.InsightProvider)
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"INSIGHT_TIMEOUT", 30 * time.Second, &cfg.InsightTimeout},
		{"INSIGHT_CACHE_TTL", 10 * time.Minute, &cfg.InsightCacheTTL},
		{"REFRESH_INTERVAL", 60 * time.Second, &cfg.RefreshInterval},
		{"SIMULATED_LATENCY", 1500 * time.Millisecond, &cfg.SimulatedLatency},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", cfg.RefreshInterval)
	}

	return cfg, nil
}

// LoadFromDB loads overrides from the database config table. Missing keys
// keep the environment value.
func LoadFromDB(ctx context.Context, db *sql.DB, cfg *Config) error {
	var interval string
	found, err := lookup(ctx, db, "refresh_interval", &interval)
	if err != nil {
		return err
	}
	if found {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("parse refresh interval %q: invalid duration", interval)
		}
		cfg.RefreshInterval = d
	}

	var model string
	if found, err = lookup(ctx, db, "insight_model", &model); err != nil {
		return err
	}
	if found && model != "" {
		cfg.InsightModel = model
	}

	var language string
	if found, err = lookup(ctx, db, "insight_language", &language); err != nil {
		return err
	}
	if found && language != "" {
		cfg.InsightLanguage = language
	}

	return nil
}

// lookup reads one JSON value from the config table into dest
func lookup(ctx context.Context, db *sql.DB, key string, dest any) (bool, error) {
	var raw string
	err := db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = $1", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query config %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("parse config %s: %w", key, err)
	}
	return true, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
