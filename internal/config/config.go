package config

import (
	"os"
	"strconv"
	"time"
)

// Storage backends for the key-value store (credentials, preferences).
const (
	StorageDisk     = "disk"
	StoragePostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// LLM Configuration
	OpenAIAPIKey        string
	OpenAIBaseURL       string // OpenAI-compatible gateway; empty uses api.openai.com
	AnthropicAPIKey     string
	AnthropicBaseURL    string
	DefaultProvider     string
	DefaultModel        string
	GenerationRateLimit float64 // requests per second, per provider; <= 0 disables
	GenerationBurst     int
	GenerationTimeout   time.Duration
	GenerationMaxTokens int // completion cap per request; 0 leaves the provider default
	// Storage
	StorageBackend string
	StoragePath    string
	DatabaseURL    string
	TablePrefix    string
	// Auth
	AuthJWKSURL   string
	AuthJWTSecret string
	// Sessions
	SessionTTL time.Duration
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool // Enables DEBUG features like verbose generation logs
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		// LLM Configuration
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL:    getEnv("ANTHROPIC_BASE_URL", ""),
		DefaultProvider:     getEnv("DEFAULT_PROVIDER", "openai"),
		DefaultModel:        getEnv("DEFAULT_MODEL", "gpt-4o-mini"),
		GenerationRateLimit: getFloat("GENERATION_RATE_LIMIT", 5),
		GenerationBurst:     getInt("GENERATION_BURST", 10),
		GenerationTimeout:   getDuration("GENERATION_TIMEOUT", 2*time.Minute),
		GenerationMaxTokens: getInt("GENERATION_MAX_TOKENS", 1024),
		// Storage
		StorageBackend: getEnv("STORAGE_BACKEND", StorageDisk),
		StoragePath:    getEnv("STORAGE_PATH", "./data"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		TablePrefix:    getTablePrefix(env),
		// Auth
		AuthJWKSURL:   getEnv("AUTH_JWKS_URL", ""),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		// Sessions
		SessionTTL: getDuration("SESSION_TTL", 24*time.Hour),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// ProviderKeys returns the environment-configured API key per provider.
func (c *Config) ProviderKeys() map[string]string {
	return map[string]string{
		"openai":    c.OpenAIAPIKey,
		"anthropic": c.AnthropicAPIKey,
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
