package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/trialops_test")
	setEnv(t, "ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Port = %s, want 8000", cfg.Port)
	}
	if cfg.DBMaxConns != 10 {
		t.Errorf("DBMaxConns = %d, want 10", cfg.DBMaxConns)
	}
	if cfg.PresignTTLSeconds != 900 {
		t.Errorf("PresignTTLSeconds = %d, want 900", cfg.PresignTTLSeconds)
	}
	if cfg.VisionModel != "gpt-4o-mini" {
		t.Errorf("VisionModel = %s, want gpt-4o-mini", cfg.VisionModel)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setEnv(t, "DATABASE_URL", "")
	setEnv(t, "ENV", "development")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadRequiresJWTSecretInProduction(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/trialops_test")
	setEnv(t, "ENV", "production")
	setEnv(t, "JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing in production")
	}

	setEnv(t, "JWT_SECRET", "secret")
	setEnv(t, "GCS_BUCKET", "trialops-docs")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}

func TestLoadRequiresGCSBucketInProduction(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/trialops_test")
	setEnv(t, "ENV", "production")
	setEnv(t, "JWT_SECRET", "secret")
	setEnv(t, "GCS_BUCKET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when GCS_BUCKET is missing in production")
	}
}

func TestCORSOriginsSplit(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/trialops_test")
	setEnv(t, "ENV", "development")
	setEnv(t, "CORS_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want 2 entries", cfg.CORSOrigins)
	}
}
