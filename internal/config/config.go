// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Push provider defaults
// --------------------------------------------------------------------------

const (
	DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"
	DefaultJWTIssuer   = "prepwise"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// Auth (tokens are issued by the identity service; we only verify)
	JWTSecret string
	JWTIssuer string

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Push delivery (Expo)
	ExpoPushURL     string
	ExpoAccessToken string
	PushTimeout     time.Duration
	PushBatchRate   float64 // batch requests per second

	// AlertNotifyBudget bounds the whole fan-out for one created alert and
	// must stay below WriteTimeout.
	AlertNotifyBudget time.Duration
	WriteTimeout      time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		JWTSecret: envOr("JWT_SECRET", ""),
		JWTIssuer: envOr("JWT_ISSUER", DefaultJWTIssuer),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:8081", // expo dev server
			"http://localhost:19006",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		ExpoPushURL:     envOr("EXPO_PUSH_URL", DefaultExpoPushURL),
		ExpoAccessToken: envOr("EXPO_ACCESS_TOKEN", ""),
		PushTimeout:     envDuration("PUSH_TIMEOUT_SECONDS", 30*time.Second),
		PushBatchRate:   envFloat("PUSH_BATCH_RATE", 10),

		AlertNotifyBudget: envDuration("ALERT_NOTIFY_BUDGET_SECONDS", 90*time.Second),
		WriteTimeout:      envDuration("HTTP_WRITE_TIMEOUT_SECONDS", 2*time.Minute),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// Validate checks settings required by the API server but not by every CLI
// command.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.WriteTimeout > 0 && c.AlertNotifyBudget >= c.WriteTimeout {
		return fmt.Errorf("ALERT_NOTIFY_BUDGET_SECONDS (%s) must be below HTTP_WRITE_TIMEOUT_SECONDS (%s)",
			c.AlertNotifyBudget, c.WriteTimeout)
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration reads a whole number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	if n := envInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
