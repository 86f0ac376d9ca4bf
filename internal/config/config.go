package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults suitable for pointing at a local demo RGW/MinIO instance.
const (
	DefaultBucketName = "tierbucket"
	DefaultEndpoint   = "https://s3.mad.eu.cephlabs.com"
	DefaultAccessKey  = "user1"
	DefaultSecretKey  = "user1"
	DefaultQuotaMB    = 20.0
	DefaultPort       = "5000"
	DefaultDBPath     = "./data/tierboard.sqlite"
)

// Config holds the process-wide settings, resolved once at startup.
type Config struct {
	BucketName string
	Endpoint   string
	AccessKey  string
	SecretKey  string

	// QuotaMB is a soft ceiling used only for usage-percentage display.
	QuotaMB float64

	Port   string
	DBPath string
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to demo defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using environment variables only")
	}

	return &Config{
		BucketName: getEnv("BUCKET_NAME", DefaultBucketName),
		Endpoint:   getEnv("RGW_ENDPOINT", DefaultEndpoint),
		AccessKey:  getEnv("AWS_ACCESS_KEY_ID", DefaultAccessKey),
		SecretKey:  getEnv("AWS_SECRET_ACCESS_KEY", DefaultSecretKey),
		QuotaMB:    getEnvFloat("BUCKET_QUOTA_MB", DefaultQuotaMB),
		Port:       getEnv("TIERBOARD_PORT", DefaultPort),
		DBPath:     getEnv("TIERBOARD_DB_PATH", DefaultDBPath),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Invalid numeric environment variable, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return value
}
