package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read from the environment.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string
	BaseURL  string

	// S3-compatible backup target. Backups stay disabled until bucket and
	// credentials are all set.
	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

// Load reads configuration from a .env file (if present) and the environment.
// A missing .env file is not an error; explicit environment variables win.
func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		Port:        getenv("DESPENSA_PORT", "8080"),
		DBPath:      getenv("DESPENSA_DB_PATH", "despensa.db"),
		LogLevel:    getenv("DESPENSA_LOG_LEVEL", "info"),
		BaseURL:     os.Getenv("DESPENSA_BASE_URL"),
		S3Endpoint:  os.Getenv("DESPENSA_S3_ENDPOINT"),
		S3Bucket:    os.Getenv("DESPENSA_S3_BUCKET"),
		S3Region:    getenv("DESPENSA_S3_REGION", "auto"),
		S3AccessKey: os.Getenv("DESPENSA_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("DESPENSA_S3_SECRET_KEY"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
