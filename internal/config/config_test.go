package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "despensa.db" {
		t.Errorf("db path = %q, want %q", cfg.DBPath, "despensa.db")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DESPENSA_PORT", "9090")
	t.Setenv("DESPENSA_DB_PATH", "/data/test.db")
	t.Setenv("DESPENSA_LOG_LEVEL", "debug")
	t.Setenv("DESPENSA_S3_BUCKET", "despensa-backups")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.DBPath != "/data/test.db" {
		t.Errorf("db path = %q, want %q", cfg.DBPath, "/data/test.db")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.S3Bucket != "despensa-backups" {
		t.Errorf("s3 bucket = %q, want %q", cfg.S3Bucket, "despensa-backups")
	}
	if cfg.BaseURL != "http://localhost:9090" {
		t.Errorf("base url = %q, want %q", cfg.BaseURL, "http://localhost:9090")
	}
}
