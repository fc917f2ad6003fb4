package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	StateStoreURL string // remote key-value document store (GET/POST /state)
	OCRServiceURL string // screenshot recogniser (POST /ocr)

	// HTTP client
	HTTPTimeout time.Duration

	// Synchronizer
	DebounceWindow time.Duration // delay after the last mutation before a save flushes
	SaveTimeout    time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Export
	ExportConcurrency int
	CacheTTL          time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StateStoreURL: getEnv("STATE_STORE_URL", "http://localhost:8001"),
		OCRServiceURL: getEnv("OCR_SERVICE_URL", "http://localhost:8000"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		DebounceWindow: getEnvDuration("DEBOUNCE_WINDOW", 500*time.Millisecond),
		SaveTimeout:    getEnvDuration("SAVE_TIMEOUT", 10*time.Second),

		// 0 retries: failed saves/scans surface to the user instead of
		// silently retrying; operators can opt in.
		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		ExportConcurrency: getEnvInt("EXPORT_CONCURRENCY", 8),
		CacheTTL:          getEnvDuration("CACHE_TTL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
