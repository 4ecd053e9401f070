package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{"DATABASE_URL", "SQLITE_PATH", "HTTP_PORT", "QUOTE_RETRY_MAX", "QUOTE_URL_TEMPLATE", "LOG_LEVEL", "DIVIDEND_WINDOW_MONTHS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.SQLitePath != "finpro.db" {
		t.Errorf("SQLitePath = %q, want finpro.db", cfg.SQLitePath)
	}
	if cfg.QuoteURLTemplate != "https://brapi.dev/api/quote/{ticker}" {
		t.Errorf("QuoteURLTemplate = %q, want default", cfg.QuoteURLTemplate)
	}
	if cfg.QuoteRetryMax != 3 {
		t.Errorf("QuoteRetryMax = %d, want 3", cfg.QuoteRetryMax)
	}
	if cfg.QuoteRetryBaseDelay != 2*time.Second {
		t.Errorf("QuoteRetryBaseDelay = %v, want 2s", cfg.QuoteRetryBaseDelay)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.DividendWindowMonths != 12 {
		t.Errorf("DividendWindowMonths = %d, want 12", cfg.DividendWindowMonths)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("QUOTE_RETRY_MAX", "10")
	t.Setenv("QUOTE_RETRY_BASE_DELAY", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.QuoteRetryMax != 10 {
		t.Errorf("QuoteRetryMax = %d, want 10", cfg.QuoteRetryMax)
	}
	if cfg.QuoteRetryBaseDelay != 5*time.Second {
		t.Errorf("QuoteRetryBaseDelay = %v, want 5s", cfg.QuoteRetryBaseDelay)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("QUOTE_RETRY_MAX", "not-a-number")
	t.Setenv("QUOTE_RETRY_BASE_DELAY", "invalid-duration")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := Load()

	if cfg.QuoteRetryMax != 3 {
		t.Errorf("QuoteRetryMax = %d, want default 3 on invalid input", cfg.QuoteRetryMax)
	}
	if cfg.QuoteRetryBaseDelay != 2*time.Second {
		t.Errorf("QuoteRetryBaseDelay = %v, want default 2s on invalid input", cfg.QuoteRetryBaseDelay)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want default INFO on invalid input", cfg.LogLevel)
	}
}

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Valuation.GrahamMultiplier != 22.5 {
		t.Errorf("GrahamMultiplier = %v, want 22.5", p.Valuation.GrahamMultiplier)
	}
	if p.Valuation.TargetYield != 0.08 {
		t.Errorf("TargetYield = %v, want 0.08", p.Valuation.TargetYield)
	}
	if len(p.Classifier.IndexFunds) == 0 {
		t.Error("expected default index fund list")
	}
}

func TestLoadPolicyFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	content := `
[valuation]
target_yield = 0.1
buy_above = 20.0

[classifier]
index_funds = ["ABCD11"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Valuation.TargetYield != 0.1 {
		t.Errorf("TargetYield = %v, want 0.1", p.Valuation.TargetYield)
	}
	if p.Valuation.BuyAbove != 20 {
		t.Errorf("BuyAbove = %v, want 20", p.Valuation.BuyAbove)
	}
	if p.Valuation.SellBelow != -10 {
		t.Errorf("SellBelow = %v, want default -10", p.Valuation.SellBelow)
	}
	if len(p.Classifier.IndexFunds) != 1 || p.Classifier.IndexFunds[0] != "ABCD11" {
		t.Errorf("IndexFunds = %v, want [ABCD11]", p.Classifier.IndexFunds)
	}
	if len(p.Classifier.UnitEquities) == 0 {
		t.Error("UnitEquities should keep defaults when absent from file")
	}
}

func TestLoadPolicyInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[valuation\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
