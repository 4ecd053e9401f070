package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	SQLitePath           string
	HTTPPort             string
	AdminAPIKey          string
	LogLevel             slog.Level
	QuoteURLTemplate     string
	QuotePricePath       string
	QuoteAPIToken        string
	QuoteRetryMax        int
	QuoteRetryBaseDelay  time.Duration
	QuoteStaleThreshold  time.Duration
	QuoteWorkerInterval  time.Duration
	ReportWorkerInterval time.Duration
	ValuationConcurrency int
	DividendWindowMonths int
	PolicyFile           string
	GoogleSheetsID       string
	GoogleCredentials    string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL:          envOrDefault("DATABASE_URL", ""),
		SQLitePath:           envOrDefault("SQLITE_PATH", "finpro.db"),
		HTTPPort:             envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:          envOrDefault("ADMIN_API_KEY", ""),
		LogLevel:             envOrDefaultLevel("LOG_LEVEL", slog.LevelInfo),
		QuoteURLTemplate:     envOrDefault("QUOTE_URL_TEMPLATE", "https://brapi.dev/api/quote/{ticker}"),
		QuotePricePath:       envOrDefault("QUOTE_PRICE_PATH", "$.results[0].regularMarketPrice"),
		QuoteAPIToken:        envOrDefault("QUOTE_API_TOKEN", ""),
		QuoteRetryMax:        envOrDefaultInt("QUOTE_RETRY_MAX", 3),
		QuoteRetryBaseDelay:  envOrDefaultDuration("QUOTE_RETRY_BASE_DELAY", 2*time.Second),
		QuoteStaleThreshold:  envOrDefaultDuration("QUOTE_STALE_THRESHOLD", 30*time.Minute),
		QuoteWorkerInterval:  envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 30*time.Minute),
		ReportWorkerInterval: envOrDefaultDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),
		ValuationConcurrency: envOrDefaultInt("VALUATION_CONCURRENCY", 4),
		DividendWindowMonths: envOrDefaultInt("DIVIDEND_WINDOW_MONTHS", 12),
		PolicyFile:           envOrDefault("POLICY_FILE", ""),
		GoogleSheetsID:       envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentials:    envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		slog.Warn("invalid log level env var, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
	return level
}
