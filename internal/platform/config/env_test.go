package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port   int    `env:"TEST_PORT" envDefault:"123"`
	APIKey string `env:"TEST_API_KEY"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.APIKey != "" {
		t.Fatalf("expected empty api key, got %q", cfg.APIKey)
	}
}

func TestParseEnvUsesPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("CAFES_TEST_API_KEY", "secret")
	t.Setenv("TEST_API_KEY", "unprefixed")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.APIKey != "secret" {
		t.Fatalf("api key = %q, want %q", cfg.APIKey, "secret")
	}
}

func TestParseEnvWithPrefixOverride(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("OTHER_TEST_PORT", "9")

	if err := ParseEnvWithPrefix(&cfg, "OTHER_"); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 9 {
		t.Fatalf("port = %d, want 9", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("CAFES_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
