package app

import (
	"io"
	"strings"
	"testing"
)

func TestInitFailsWithoutRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("BASE_URL", "")

	_, err := Init(io.Discard)
	if err == nil {
		t.Fatal("Init should fail when required environment variables are missing")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error should name the missing variables: %v", err)
	}
}

func TestInitLoadsConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://finedata:secret@db:5432/finedata")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id.apps.googleusercontent.com")
	t.Setenv("BASE_URL", "http://localhost:8080")

	cfg, err := Init(io.Discard)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if cfg.GoogleClientID != "client-id.apps.googleusercontent.com" {
		t.Errorf("GoogleClientID = %q", cfg.GoogleClientID)
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	masked := maskDatabaseURL("postgres://finedata:secret@db:5432/finedata")
	if strings.Contains(masked, "secret") {
		t.Errorf("credentials should be masked: %q", masked)
	}

	if got := maskDatabaseURL("short"); got != "***" {
		t.Errorf("short URL should be fully masked, got %q", got)
	}
}
