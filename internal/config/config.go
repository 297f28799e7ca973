package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port         string
	DBConn       string
	Storage      string
	LogLevel     string
	SecretKey    string
	CookieSecure bool
	SessionTTL   time.Duration
	RememberTTL  time.Duration
	LoginRate    float64
	LoginBurst   int
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=vaccine sslmode=disable"),
		Storage:      getEnv("STORAGE", StoragePostgres),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		SecretKey:    getEnv("SECRET_KEY", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@vaccine.local"),
	}

	var err error
	if cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.RememberTTL, err = time.ParseDuration(getEnv("REMEMBER_TTL", "720h")); err != nil {
		return nil, fmt.Errorf("invalid REMEMBER_TTL: %w", err)
	}
	if cfg.LoginRate, err = strconv.ParseFloat(getEnv("LOGIN_RATE", "1"), 64); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE: %w", err)
	}
	if cfg.LoginBurst, err = strconv.Atoi(getEnv("LOGIN_BURST", "5")); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_BURST: %w", err)
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if len(cfg.SecretKey) < 32 {
		return nil, fmt.Errorf("SECRET_KEY must be at least 32 bytes")
	}
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
	if cfg.SessionTTL <= 0 || cfg.RememberTTL <= 0 {
		return nil, fmt.Errorf("session durations must be positive")
	}
	if cfg.LoginRate <= 0 || cfg.LoginBurst <= 0 {
		return nil, fmt.Errorf("LOGIN_RATE and LOGIN_BURST must be positive")
	}

	return cfg, nil
}

// MailEnabled reports whether booking confirmations can be sent.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
