package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RateLimitConfig holds rate limiting settings for the tenant endpoints.
type RateLimitConfig struct {
	Enabled                  bool
	ResolveRequestsPerMinute int
	MutateRequestsPerMinute  int
}

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret string
	JWTIssuer string

	// Identity provider (optional; /api/tenant/cognito degrades without it)
	IDPBaseURL      string
	IDPServiceToken string

	// Redis verify cache (optional)
	RedisAddr      string
	RedisPassword  string
	VerifyCacheTTL time.Duration

	// Rate limiting
	RateLimit RateLimitConfig
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "dott_tenant"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "dott"),

		// Identity provider (optional)
		IDPBaseURL:      getEnv("IDP_BASE_URL", ""),
		IDPServiceToken: getEnv("IDP_SERVICE_TOKEN", ""),

		// Redis (optional)
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		VerifyCacheTTL: getEnvDuration("VERIFY_CACHE_TTL", 30*time.Second),

		RateLimit: RateLimitConfig{
			Enabled:                  getEnvBool("RATE_LIMIT_ENABLED", true),
			ResolveRequestsPerMinute: getEnvInt("RATE_LIMIT_RESOLVE_PER_MINUTE", 120),
			MutateRequestsPerMinute:  getEnvInt("RATE_LIMIT_MUTATE_PER_MINUTE", 20),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// HasIDP returns true if an identity provider is configured.
func (c *Config) HasIDP() bool {
	return c.IDPBaseURL != "" && c.IDPServiceToken != ""
}

// HasRedis returns true if the Redis verify cache is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
