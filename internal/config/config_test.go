package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("GRIMNIR_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("GRIMNIR_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("GRIMNIR_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("GRIMNIR_DB_DSN", "")
	t.Setenv("GRIMNIR_JWT_SIGNING_KEY", "supersecret")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a DSN")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("GRIMNIR_DB_DSN", "file::memory:")
	t.Setenv("GRIMNIR_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("GRIMNIR_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail for unsupported backend")
	}
}
