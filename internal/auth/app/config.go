package app

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/ltphongssvn/autoloan-auth/pkg/jwtx"
)

type Config struct {
	Issuer        string // Issuer claim for tokens (default: autoloan-auth)
	SigningSecret string // Required: HS256 secret, at least 32 bytes

	TokenTTL         time.Duration // Access token lifetime (default: 168h)
	LockoutThreshold int           // Failed attempts before lockout (default: 5)
	RateLimit        int           // Advisory requests-per-hour window limit (default: 60)
	BackupCodeCount  int           // Backup codes minted at MFA enablement (default: 10)
	BackupCodeLength int           // Hex length of each backup code (default: 8)

	DatabaseFile      string // Path to SQLite database file (default: ./auth.db)
	RevocationBackend string // Denylist backend: sqlite or redis (default: sqlite)
	RedisAddr         string // Redis address, required when backend is redis
	PepperFile        string // Path to the password-hashing pepper file (default: ./pepper)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

var (
	ErrMissingSecret = errors.New("AUTH_SIGNING_SECRET is required")
	ErrShortSecret   = errors.New("AUTH_SIGNING_SECRET must be at least 32 bytes")
	ErrMissingRedis  = errors.New("AUTH_REDIS_ADDR is required when AUTH_REVOCATION_BACKEND=redis")
)

func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "autoloan-auth"),
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),

		TokenTTL:         getEnvDurationOrDefault("AUTH_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		LockoutThreshold: getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", 5),
		RateLimit:        getEnvIntOrDefault("AUTH_RATE_LIMIT", 60),
		BackupCodeCount:  getEnvIntOrDefault("AUTH_BACKUP_CODE_COUNT", 10),
		BackupCodeLength: getEnvIntOrDefault("AUTH_BACKUP_CODE_LENGTH", 8),

		DatabaseFile:      getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		RevocationBackend: getEnvOrDefault("AUTH_REVOCATION_BACKEND", "sqlite"),
		RedisAddr:         os.Getenv("AUTH_REDIS_ADDR"),
		PepperFile:        getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate checks the parts of the config that cannot fall back to a
// default.
func (c Config) Validate() error {
	if c.SigningSecret == "" {
		return ErrMissingSecret
	}
	if len(c.SigningSecret) < jwtx.MinSecretLength {
		return ErrShortSecret
	}
	if c.RevocationBackend == "redis" && c.RedisAddr == "" {
		return ErrMissingRedis
	}
	return nil
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer hours for the TTL-style settings
	if hours, err := strconv.Atoi(value); err == nil {
		return time.Duration(hours) * time.Hour
	}

	return defaultValue
}
