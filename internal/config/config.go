package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime setting the service reads from the environment.
type Config struct {
	ServiceName string
	Port        string

	DatabaseUser     string
	DatabasePassword string
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string

	JWTSecret string
	TokenTTL  time.Duration

	// CacheBackend selects "memory" (default) or "redis". A single-instance
	// deployment is fine with the in-process cache; multiple instances must
	// share invalidations through Redis.
	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string

	// OperatorWebhookURL receives the order-placed notification. Empty
	// disables dispatch.
	OperatorWebhookURL string
	NotifyTimeout      time.Duration

	OTLPEndpoint string
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		ServiceName: getEnv("SERVICE_NAME", "storefront"),
		Port:        getEnv("PORT", "8080"),

		DatabaseUser:     getEnv("DATABASE_USER", "root"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", "pass"),
		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseName:     getEnv("DATABASE_NAME", "storefront_db"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", time.Hour),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:     getEnvDuration("CACHE_TTL", 10*time.Minute),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),

		OperatorWebhookURL: getEnv("OPERATOR_WEBHOOK_URL", ""),
		NotifyTimeout:      getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	}
}

// DatabaseURL assembles the pgx connection string.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DatabaseUser, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
