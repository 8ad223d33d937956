package config

import "testing"

func setRequired(t *testing.T) {
	t.Setenv("GCS_3MF_BUCKET", "models")
	t.Setenv("GCS_IMAGE_BUCKET", "images")
	t.Setenv("GCS_OUTPUT_BUCKET", "output")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/callback")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Production() {
		t.Error("Production() = true for default env")
	}
	if cfg.SessionBackend != "memory" {
		t.Errorf("SessionBackend = %q, want memory", cfg.SessionBackend)
	}
	if cfg.JWTSecretParam != "/printshelf/jwt-secret" {
		t.Errorf("JWTSecretParam = %q", cfg.JWTSecretParam)
	}
}

func TestLoad_MissingBucket(t *testing.T) {
	setRequired(t)
	t.Setenv("GCS_OUTPUT_BUCKET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing GCS_OUTPUT_BUCKET")
	}
}

func TestLoad_InvalidSessionBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SESSION_BACKEND")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestLoad_Production(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Production() {
		t.Error("Production() = false with APP_ENV=production")
	}
}
