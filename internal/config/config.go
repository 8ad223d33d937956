// Package config loads and validates the server configuration from
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds every tunable of the printshelf server.
type Config struct {
	// HTTP listen port.
	Port int
	// Deployment environment: "production" or "development".
	Env string

	// GCS bucket holding the 3MF model files.
	ModelBucket string
	// GCS bucket holding the loose photo images.
	ImageBucket string
	// GCS bucket that receives committed groups.
	OutputBucket string
	// Object-key prefix under which images live in the image bucket.
	ImageFolder string

	// Google OAuth client ID. The client secret is resolved through the
	// secret resolver, never read directly from config.
	GoogleClientID string
	// OAuth redirect URI registered with Google.
	GoogleRedirectURL string
	// Frontend origin to redirect to after login in development.
	FrontendURL string

	// Directory with the built single-page client, served in production.
	StaticDir string

	// Session store backend: "memory" or "dynamodb".
	SessionBackend string
	// DynamoDB table for sessions when SessionBackend is "dynamodb".
	SessionTable string
	// KMS key used to encrypt access tokens at rest in DynamoDB.
	KMSKeyID string

	// SSM parameter names (or env-var equivalents in development).
	GoogleClientSecretParam string
	JWTSecretParam          string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment, applies defaults and
// validates required fields.
func Load() (*Config, error) {
	cfg := &Config{}

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT: %d is out of range", port)
	}
	cfg.Port = port

	cfg.Env = getEnvDefault("APP_ENV", "development")

	cfg.ModelBucket, err = getEnvRequired("GCS_3MF_BUCKET")
	if err != nil {
		return nil, err
	}
	cfg.ImageBucket, err = getEnvRequired("GCS_IMAGE_BUCKET")
	if err != nil {
		return nil, err
	}
	cfg.OutputBucket, err = getEnvRequired("GCS_OUTPUT_BUCKET")
	if err != nil {
		return nil, err
	}
	cfg.ImageFolder = os.Getenv("GCS_IMAGE_FOLDER")

	cfg.GoogleClientID, err = getEnvRequired("GOOGLE_CLIENT_ID")
	if err != nil {
		return nil, err
	}
	cfg.GoogleRedirectURL, err = getEnvRequired("GOOGLE_REDIRECT_URI")
	if err != nil {
		return nil, err
	}
	cfg.FrontendURL = getEnvDefault("FRONTEND_URL", "http://localhost:5173")

	cfg.StaticDir = getEnvDefault("STATIC_DIR", "client/dist")

	cfg.SessionBackend = getEnvDefault("SESSION_BACKEND", "memory")
	if cfg.SessionBackend != "memory" && cfg.SessionBackend != "dynamodb" {
		return nil, fmt.Errorf("SESSION_BACKEND: invalid value %q, expected memory or dynamodb", cfg.SessionBackend)
	}
	cfg.SessionTable = getEnvDefault("SESSIONS_TABLE", "PrintshelfSessions")
	cfg.KMSKeyID = getEnvDefault("KMS_KEY_ID", "alias/printshelf-token-key")

	cfg.GoogleClientSecretParam = getEnvDefault("GOOGLE_CLIENT_SECRET_PARAM", "/printshelf/google-client-secret")
	cfg.JWTSecretParam = getEnvDefault("JWT_SECRET_PARAM", "/printshelf/jwt-secret")

	level, err := parseLogLevel(getEnvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	cfg.LogFormat = getEnvDefault("LOG_FORMAT", "text")
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT: invalid value %q, expected text or json", cfg.LogFormat)
	}

	return cfg, nil
}

// Production reports whether the server runs in production mode, which
// enables the Secure cookie flag, static file serving and the AWS-backed
// secret resolver.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s: required environment variable is not set", key)
	}
	return v, nil
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
