package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("VERTEX_PROJECT_ID", "couple-expenses")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.VertexLocation != "us-central1" || cfg.VertexModel != "gemini-2.5-flash-lite" {
		t.Fatalf("unexpected vertex defaults: %+v", cfg)
	}
	if len(cfg.CredentialScopes) != 1 || cfg.CredentialScopes[0] != "https://www.googleapis.com/auth/cloud-platform" {
		t.Fatalf("unexpected scopes: %v", cfg.CredentialScopes)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected max body: %d", cfg.MaxBodyBytes)
	}
}

func TestLoadRequiresProjectID(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VERTEX_PROJECT_ID", "  ")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "VERTEX_PROJECT_ID") {
		t.Fatalf("expected project id error, got %v", err)
	}
}

func TestLoadNormalizesValues(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VERTEX_BASE_URL", " http://localhost:9090/ ")
	t.Setenv("CREDENTIAL_SCOPES", "a, ,b")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VertexBaseURL != "http://localhost:9090" {
		t.Fatalf("unexpected base url: %q", cfg.VertexBaseURL)
	}
	if strings.Join(cfg.CredentialScopes, "|") != "a|b" {
		t.Fatalf("unexpected scopes: %v", cfg.CredentialScopes)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	// godotenv does not override variables that are already set.
	for _, key := range []string{"VERTEX_PROJECT_ID", "VERTEX_MODEL"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("VERTEX_PROJECT_ID=from-file\nVERTEX_MODEL=gemini-2.5-pro\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("ENV_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VertexProjectID != "from-file" || cfg.VertexModel != "gemini-2.5-pro" {
		t.Fatalf("env file not applied: %+v", cfg)
	}
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := Config{
		ListenAddr:       ":8080",
		VertexProjectID:  "p",
		VertexLocation:   "us-central1",
		VertexModel:      "m",
		CredentialScopes: []string{"s"},
		MaxBodyBytes:     1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected timeout validation error")
	}
}
