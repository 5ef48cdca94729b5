// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	// Telegram
	BotToken   string
	AllowedIDs []int64

	// Market data
	BinanceBaseURL  string
	ReferenceSymbol string
	ExcludeSymbols  []string
	EnableWSWarmer  bool

	// Scan engine
	HTTPConcurrency     int
	AnalysisConcurrency int
	CandleLimit         int
	CooldownMinutes     int
	MaxSignals          int
	FeeRoundTripPct     float64

	// Scheduled scans; 0 disables them.
	ScanIntervalMinutes int
	ScheduledStrategy   string
	ScheduledMode       string

	// Ops server
	HTTPPort   int
	Production bool
	LogLevel   string

	// Optional cooldown mirror; empty address disables Redis entirely.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		AllowedIDs: parseIDList(os.Getenv("ALLOWED_IDS")),

		BinanceBaseURL:  getEnvOrDefault("BINANCE_BASE_URL", "https://api.binance.com"),
		ReferenceSymbol: getEnvOrDefault("REFERENCE_SYMBOL", "BTCUSDT"),
		ExcludeSymbols:  parseSymbolList(os.Getenv("EXCLUDE_SYMBOLS")),
		EnableWSWarmer:  getEnvBoolOrDefault("ENABLE_WS_WARMER", false),

		HTTPConcurrency:     getEnvIntOrDefault("HTTP_CONCURRENCY", 12),
		AnalysisConcurrency: getEnvIntOrDefault("ANALYSIS_CONCURRENCY", 8),
		CandleLimit:         getEnvIntOrDefault("CANDLE_LIMIT", 120),
		CooldownMinutes:     getEnvIntOrDefault("COOLDOWN_MINUTES", 45),
		MaxSignals:          getEnvIntOrDefault("MAX_SIGNALS", 5),
		FeeRoundTripPct:     getEnvFloatOrDefault("FEE_ROUND_TRIP_PCT", 0.20),

		ScanIntervalMinutes: getEnvIntOrDefault("SCAN_INTERVAL_MINUTES", 0),
		ScheduledStrategy:   getEnvOrDefault("SCHEDULED_STRATEGY", "breakout"),
		ScheduledMode:       getEnvOrDefault("SCHEDULED_MODE", "retail"),

		HTTPPort:   getEnvIntOrDefault("HTTP_PORT", 8080),
		Production: getEnvBoolOrDefault("PRODUCTION", false),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseIDList(raw string) []int64 {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func parseSymbolList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToUpper(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
