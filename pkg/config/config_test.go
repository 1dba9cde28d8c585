package config

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "BRAPI_TOKEN",
		"INSIGHT_PROVIDER", "INSIGHT_MODEL", "INSIGHT_LANGUAGE", "INSIGHT_TIMEOUT", "INSIGHT_CACHE_TTL",
		"REFRESH_INTERVAL", "SIMULATED_LATENCY",
		"DATABASE_URL", "REDIS_ADDR", "HEALTH_URL", "HTTP_ADDR",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.GeminiAPIKey != "" || cfg.InsightAPIKey() != "" {
		t.Errorf("expected no API key, got %q", cfg.InsightAPIKey())
	}
	if cfg.InsightProvider != ProviderGemini {
		t.Errorf("InsightProvider = %v, want %v", cfg.InsightProvider, ProviderGemini)
	}
	if cfg.RefreshInterval != 60*time.Second {
		t.Errorf("RefreshInterval = %v, want 60s", cfg.RefreshInterval)
	}
	if cfg.SimulatedLatency != 1500*time.Millisecond {
		t.Errorf("SimulatedLatency = %v, want 1.5s", cfg.SimulatedLatency)
	}
	if cfg.InsightTimeout != 30*time.Second {
		t.Errorf("InsightTimeout = %v, want 30s", cfg.InsightTimeout)
	}
	if cfg.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("HTTPAddr = %v, want 127.0.0.1:8080", cfg.HTTPAddr)
	}
	if cfg.InsightLanguage != "Brazilian Portuguese" {
		t.Errorf("InsightLanguage = %v", cfg.InsightLanguage)
	}
	if cfg.LogFile != "investpro.log" {
		t.Errorf("LogFile = %v, want investpro.log", cfg.LogFile)
	}
}

func TestLoadFromEnv_WithVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "test_anthropic_key")
	t.Setenv("GEMINI_API_KEY", "test_gemini_key")
	t.Setenv("INSIGHT_PROVIDER", "Claude")
	t.Setenv("REFRESH_INTERVAL", "15s")
	t.Setenv("SIMULATED_LATENCY", "0s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.InsightProvider != ProviderClaude {
		t.Errorf("InsightProvider = %v, want claude", cfg.InsightProvider)
	}
	if cfg.InsightAPIKey() != "test_anthropic_key" {
		t.Errorf("InsightAPIKey() = %v, want test_anthropic_key", cfg.InsightAPIKey())
	}
	if cfg.RefreshInterval != 15*time.Second {
		t.Errorf("RefreshInterval = %v, want 15s", cfg.RefreshInterval)
	}
	if cfg.SimulatedLatency != 0 {
		t.Errorf("SimulatedLatency = %v, want 0", cfg.SimulatedLatency)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REFRESH_INTERVAL", "soon"},
		{"REFRESH_INTERVAL", "0s"},
		{"INSIGHT_TIMEOUT", "30"},
		{"INSIGHT_PROVIDER", "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("LoadFromEnv() should fail for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromDB_Overrides(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	query := "SELECT value FROM config WHERE key = \\$1"
	mock.ExpectQuery(query).WithArgs("refresh_interval").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`"90s"`))
	mock.ExpectQuery(query).WithArgs("insight_model").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectQuery(query).WithArgs("insight_language").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`"English"`))

	cfg := &Config{RefreshInterval: time.Minute, InsightModel: "gemini-3-flash-preview", InsightLanguage: "Brazilian Portuguese"}
	if err := LoadFromDB(context.Background(), db, cfg); err != nil {
		t.Fatalf("LoadFromDB() error = %v", err)
	}

	if cfg.RefreshInterval != 90*time.Second {
		t.Errorf("RefreshInterval = %v, want 90s", cfg.RefreshInterval)
	}
	if cfg.InsightModel != "gemini-3-flash-preview" {
		t.Errorf("InsightModel = %v, want unchanged", cfg.InsightModel)
	}
	if cfg.InsightLanguage != "English" {
		t.Errorf("InsightLanguage = %v, want English", cfg.InsightLanguage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoadFromDB_BadValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM config").WithArgs("refresh_interval").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`"-5s"`))

	cfg := &Config{RefreshInterval: time.Minute}
	if err := LoadFromDB(context.Background(), db, cfg); err == nil {
		t.Error("LoadFromDB() should reject a non-positive interval")
	}
	if cfg.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval changed to %v", cfg.RefreshInterval)
	}
}
