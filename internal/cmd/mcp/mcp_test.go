package mcp

import (
	"context"
	"flag"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("CAFES_DB_PATH", "")
	t.Setenv("CAFES_API_KEY", "")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/cafes.db" {
		t.Fatalf("db path = %q, want data/cafes.db", cfg.DBPath)
	}
	if cfg.APIKey != "" {
		t.Fatalf("api key = %q, want empty", cfg.APIKey)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("CAFES_DB_PATH", "env.db")
	t.Setenv("CAFES_API_KEY", "env-key")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db-path", "flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("db path = %q, want flag.db", cfg.DBPath)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env-key", cfg.APIKey)
	}
}

func TestServeExposesCafeTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	cfg := Config{DBPath: filepath.Join(t.TempDir(), "cafes.db"), APIKey: "TopSecretAPIKey"}

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(result.Tools) != 7 {
		t.Fatalf("tools = %d, want 7", len(result.Tools))
	}

	_ = session.Close()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Logf("serve returned: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for serve to return")
	}
}

func TestServeRequiresDBPath(t *testing.T) {
	serverTransport, _ := mcp.NewInMemoryTransports()
	if err := serve(context.Background(), Config{}, serverTransport); err == nil {
		t.Fatal("expected error for missing db path")
	}
}
