package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	DatabaseURL        string `env:"DATABASE_URL"`
	RedisURL           string `env:"REDIS_URL"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`
	FrontendURL        string `env:"FRONTEND_URL"`
	JWTSecret          string `env:"JWT_SECRET"`
	SessionSecret      string `env:"SESSION_SECRET"`
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	// AccessTokenTTL is the lifetime of issued JWTs (7 days by default).
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" default:"168h"`

	// SyncInterval controls the background Gmail ingestion sweep.
	SyncInterval time.Duration `env:"SYNC_INTERVAL" default:"15m"`

	// GmailQuery and GmailMaxResults bound each per-user mailbox scan.
	GmailQuery      string `env:"GMAIL_QUERY" default:"newer_than:24h"`
	GmailMaxResults int64  `env:"GMAIL_MAX_RESULTS" default:"50"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":         cfg.DatabaseURL,
		"REDIS_URL":            cfg.RedisURL,
		"GOOGLE_CLIENT_ID":     cfg.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": cfg.GoogleClientSecret,
		"GOOGLE_REDIRECT_URI":  cfg.GoogleRedirectURI,
		"FRONTEND_URL":         cfg.FrontendURL,
		"JWT_SECRET":           cfg.JWTSecret,
		"SESSION_SECRET":       cfg.SessionSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if cfg.GmailMaxResults <= 0 || cfg.GmailMaxResults > 500 {
		return fmt.Errorf("GMAIL_MAX_RESULTS must be between 1 and 500")
	}

	return nil
}
