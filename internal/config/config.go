package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	StorageBackend string // "local" or "gcs"
	StoragePath    string
	GCSBucket      string

	GeminiBaseURL string
	GeminiModel   string
	GeminiAPIKey  string
	GeminiRPS     float64

	BatchWorkers           int
	ClassifyTimeoutSeconds int
	ExcerptMaxChars        int

	TaxonomyPath string

	// Optional: per-document outcome history, enabled when set.
	PostgresDSN string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		StorageBackend: mustEnv("STORAGE_BACKEND", "local"),
		StoragePath:    mustEnv("STORAGE_PATH", "./data/documents"),
		GCSBucket:      mustEnv("GCS_BUCKET", ""),

		GeminiBaseURL: mustEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:   mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiAPIKey:  mustEnv("GEMINI_API_KEY", ""),
		GeminiRPS:     mustEnvFloat("GEMINI_RPS", 2),

		BatchWorkers:           mustEnvInt("BATCH_WORKERS", 4),
		ClassifyTimeoutSeconds: mustEnvInt("CLASSIFY_TIMEOUT_SECONDS", 30),
		ExcerptMaxChars:        mustEnvInt("EXCERPT_MAX_CHARS", 500),

		TaxonomyPath: mustEnv("TAXONOMY_PATH", ""),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
