package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Media.MaxFilesPerUpload != 12 {
		t.Fatalf("expected default upload cap 12, got %d", cfg.Media.MaxFilesPerUpload)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("expected default token TTL 12h, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Media.FFmpegPath != "ffmpeg" {
		t.Fatalf("expected ffmpeg resolved from PATH, got %s", cfg.Media.FFmpegPath)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("UPLOAD_MAX_FILES", "3")
	t.Setenv("AUTH_TOKEN_TTL", "30m")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Media.MaxFilesPerUpload != 3 {
		t.Fatalf("expected upload cap 3, got %d", cfg.Media.MaxFilesPerUpload)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("expected token TTL 30m, got %s", cfg.Auth.TokenTTL)
	}
	if !cfg.MinIO.UseSSL {
		t.Fatalf("expected MinIO SSL enabled")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("AUTH_BCRYPT_COST", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Fatalf("expected fallback port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Fatalf("expected out-of-range bcrypt cost clamped to 10, got %d", cfg.Auth.BcryptCost)
	}
}

func TestSplitOrigins(t *testing.T) {
	got := splitOrigins(" https://a.example.com , https://b.example.com ,, ")
	if len(got) != 2 {
		t.Fatalf("expected 2 origins, got %v", got)
	}
	if got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "pw",
		Database: "wedding",
		SSLMode:  "disable",
	}.DSN()

	want := "postgres://app:pw@db:5432/wedding?sslmode=disable"
	if dsn != want {
		t.Fatalf("DSN() = %q, want %q", dsn, want)
	}
}
