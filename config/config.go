package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Provider configuration
	ReceiptBaseURL     string
	ReceiptJSONBaseURL string
	ProviderTimeout    time.Duration

	// Circuit breaker around provider calls
	BreakerEnabled      bool
	BreakerMaxRequests  int
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	BreakerFailureRatio float64

	// Rate limiting
	VerifyRateLimit  int
	MetricsRateLimit int
	RateLimitWindow  time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "receipt-verifier"),

		// Provider
		ReceiptBaseURL:     getEnv("RECEIPT_BASE_URL", "https://cash.app/payments/"),
		ReceiptJSONBaseURL: getEnv("RECEIPT_JSON_BASE_URL", "https://cash.app/receipt-json/f/"),
		ProviderTimeout:    getEnvAsDuration("PROVIDER_TIMEOUT", "10s"),

		// Circuit breaker
		BreakerEnabled:      getEnvAsBool("PROVIDER_BREAKER_ENABLED", false),
		BreakerMaxRequests:  getEnvAsInt("PROVIDER_BREAKER_MAX_REQUESTS", 100),
		BreakerInterval:     getEnvAsDuration("PROVIDER_BREAKER_INTERVAL", "60s"),
		BreakerTimeout:      getEnvAsDuration("PROVIDER_BREAKER_TIMEOUT", "60s"),
		BreakerFailureRatio: getEnvAsFloat("PROVIDER_BREAKER_FAILURE_RATIO", 0.6),

		// Rate limiting
		VerifyRateLimit:  getEnvAsInt("VERIFY_RATE_LIMIT", 30),
		MetricsRateLimit: getEnvAsInt("METRICS_RATE_LIMIT", 120),
		RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

// PubNubEnabled reports whether realtime notifications are configured.
func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
