package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer   string // Required: public base URL, also the ID token issuer
	LoginURL string // Where unauthenticated members are sent (with continue_to)

	SigningKeyFile string // Optional: PEM-encoded P-521 key; ephemeral when empty
	DatabaseFile   string // Path to SQLite database file (default: ./auth.db)

	CodeTTL    time.Duration // Authorization code lifetime (default: 1m)
	AccessTTL  time.Duration // Access token lifetime (default: 1h)
	IDTokenTTL time.Duration // ID token lifetime (default: 1h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-grant prune interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:   os.Getenv("AUTH_ISSUER"),
		LoginURL: getEnvOrDefault("AUTH_LOGIN_URL", "/login"),

		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),

		CodeTTL:    getEnvDurationOrDefault("AUTH_CODE_TTL", time.Minute),
		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", time.Hour),
		IDTokenTTL: getEnvDurationOrDefault("AUTH_ID_TOKEN_TTL", time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "http://localhost:8080"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
