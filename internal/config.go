package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Application base URL (for payment redirect links)
	BaseURL string

	// Store Configuration
	StoreBackend string // "memory" or "postgres"
	DatabaseUrl  string

	// Quota day boundary. The product's home market runs on UTC+3, so
	// quota days roll over at local midnight there by default.
	QuotaUTCOffsetHours int

	// Plan ceilings and pricing
	FreeDailyLimit        int
	PremiumDailyLimit     int
	FreePerMinuteLimit    int
	PremiumPerMinuteLimit int
	PremiumPriceKES       int
	PremiumDurationDays   int

	// AI Classifier Configuration
	AIProvider       string // "huggingface" or "mock"
	HuggingFaceToken string
	HuggingFaceModel string
	AIRequestTimeout time.Duration
	AIMaxRetries     int
	AIRetryBaseDelay time.Duration

	// Payment Provider Configuration
	PaymentProvider        string // "intasend" or "mock"
	IntaSendAPIToken       string
	IntaSendPublishableKey string
	IntaSendTestMode       bool
	PaymentWebhookSecret   string

	// API bearer tokens as "token:user_id" pairs
	APITokens []string

	// CORS origins allowed to call the API
	CORSAllowedOrigins []string

	// Sweeper Configuration
	SweepEnabled  bool
	SweepInterval time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Base URL defaults to localhost for development
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		// Store defaults to in-memory for development
		StoreBackend: getEnv("STORE_BACKEND", "memory"),

		// Quota day boundary
		QuotaUTCOffsetHours: getEnvInt("QUOTA_UTC_OFFSET_HOURS", 3),

		// Plan defaults
		FreeDailyLimit:        getEnvInt("FREE_DAILY_LIMIT", 5),
		PremiumDailyLimit:     getEnvInt("PREMIUM_DAILY_LIMIT", 200),
		FreePerMinuteLimit:    getEnvInt("FREE_PER_MINUTE_LIMIT", 60),
		PremiumPerMinuteLimit: getEnvInt("PREMIUM_PER_MINUTE_LIMIT", 60),
		PremiumPriceKES:       getEnvInt("PREMIUM_PRICE_KES", 499),
		PremiumDurationDays:   getEnvInt("PREMIUM_DURATION_DAYS", 30),

		// AI provider defaults
		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		HuggingFaceToken: getEnv("HUGGINGFACE_API_TOKEN", ""),
		HuggingFaceModel: getEnv("HUGGINGFACE_MODEL", "j-hartmann/emotion-english-distilroberta-base"),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 10*time.Second),
		AIMaxRetries:     getEnvInt("AI_MAX_RETRIES", 2),
		AIRetryBaseDelay: getEnvDuration("AI_RETRY_BASE_DELAY", 500*time.Millisecond),

		// Payment provider defaults
		PaymentProvider:        getEnv("PAYMENT_PROVIDER", "mock"),
		IntaSendAPIToken:       getEnv("INTASEND_API_TOKEN", ""),
		IntaSendPublishableKey: getEnv("INTASEND_PUBLISHABLE_KEY", ""),
		IntaSendTestMode:       getEnvBool("INTASEND_TEST_MODE", true),
		PaymentWebhookSecret:   getEnv("PAYMENT_WEBHOOK_SECRET", ""),

		// Sweeper defaults
		SweepEnabled:  getEnvBool("SWEEP_ENABLED", true),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Parse API tokens from comma-separated "token:user_id" pairs
	tokensStr := getEnv("API_TOKENS", "")
	if tokensStr != "" {
		for _, pair := range strings.Split(tokensStr, ",") {
			trimmed := strings.TrimSpace(pair)
			if trimmed != "" {
				cfg.APITokens = append(cfg.APITokens, trimmed)
			}
		}
	}

	// Parse CORS origins from comma-separated environment variable
	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, trimmed)
			}
		}
	}

	// Validate store configuration
	if cfg.StoreBackend == "postgres" {
		cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
		if cfg.DatabaseUrl == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is 'postgres'")
		}
	} else if cfg.StoreBackend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be either 'memory' or 'postgres', got: %s", cfg.StoreBackend)
	}

	// Validate AI provider configuration
	if cfg.AIProvider == "huggingface" {
		if cfg.HuggingFaceToken == "" {
			return nil, fmt.Errorf("HUGGINGFACE_API_TOKEN is required when AI_PROVIDER is 'huggingface'")
		}
	} else if cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be either 'huggingface' or 'mock', got: %s", cfg.AIProvider)
	}

	// Validate payment provider configuration
	if cfg.PaymentProvider == "intasend" {
		if cfg.IntaSendAPIToken == "" {
			return nil, fmt.Errorf("INTASEND_API_TOKEN is required when PAYMENT_PROVIDER is 'intasend'")
		}
		if cfg.PaymentWebhookSecret == "" {
			return nil, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required when PAYMENT_PROVIDER is 'intasend'")
		}
	} else if cfg.PaymentProvider != "mock" {
		return nil, fmt.Errorf("PAYMENT_PROVIDER must be either 'intasend' or 'mock', got: %s", cfg.PaymentProvider)
	}

	// Validate plan ceilings
	if cfg.FreeDailyLimit < 1 {
		return nil, fmt.Errorf("FREE_DAILY_LIMIT must be at least 1, got: %d", cfg.FreeDailyLimit)
	}
	if cfg.PremiumDailyLimit < cfg.FreeDailyLimit {
		return nil, fmt.Errorf("PREMIUM_DAILY_LIMIT (%d) must not be below FREE_DAILY_LIMIT (%d)",
			cfg.PremiumDailyLimit, cfg.FreeDailyLimit)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
