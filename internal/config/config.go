package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      string
	DatabaseDialect string // "postgres" or "sqlite3"
	DatabaseURL     string
	ShortCodeLength int
	JWTSecret       string
	TokenTTL        time.Duration
	RedisAddr       string // Optional, enables the resolve cache
	RedisPassword   string
	CacheTTL        time.Duration
	AppEnv          string
	LogLevel        string
	LogFile         string // Optional, rotated by lumberjack
}

var AppConfig *Config

// LoadConfig loads configuration from environment variables.
// It looks for a .env file in the current directory for development convenience.
// Missing or malformed required values are reported as an error so the
// process can refuse to start.
func LoadConfig() error {
	// Attempt to load .env file, but don't fail if it's not there (for production)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", ":8080"),
		DatabaseDialect: getEnv("DATABASE_DIALECT", "postgres"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		AppEnv:          getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}

	length, err := parseCodeLength(os.Getenv("SHORT_CODE_LENGTH"))
	if err != nil {
		return err
	}
	cfg.ShortCodeLength = length

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.DatabaseDialect != "postgres" && cfg.DatabaseDialect != "sqlite3" {
		return fmt.Errorf("DATABASE_DIALECT must be postgres or sqlite3, got %q", cfg.DatabaseDialect)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}

	AppConfig = cfg
	return nil
}

// parseCodeLength validates SHORT_CODE_LENGTH: set, numeric and positive.
func parseCodeLength(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("SHORT_CODE_LENGTH environment variable is required")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("SHORT_CODE_LENGTH must be an integer: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("SHORT_CODE_LENGTH must be positive, got %d", n)
	}
	return n, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RedactedDatabaseURL returns the database URL with any password masked,
// suitable for logging.
func (c *Config) RedactedDatabaseURL() string {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.User == nil {
		return c.DatabaseURL
	}
	return u.Redacted()
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
