// Package mcp parses MCP command flags and serves the cafe tools over stdio.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/louisbranch/cafes/internal/platform/cmd"
	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage/sqlite"
	"github.com/louisbranch/cafes/internal/services/cafes/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config holds MCP command configuration.
type Config struct {
	DBPath string `env:"DB_PATH" envDefault:"data/cafes.db"`
	APIKey string `env:"API_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Credential required by cafe_report_closed (empty disables it)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the cafe tools on stdio until the client disconnects.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return serve(ctx, cfg, &mcp.StdioTransport{})
	})
}

func serve(ctx context.Context, cfg Config, transport mcp.Transport) error {
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open cafes sqlite store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close cafes store: %v", err)
		}
	}()

	svc := service.New(store, service.WithAPIKey(cfg.APIKey))
	log.Printf("serving cafe tools from %s", cfg.DBPath)
	return tools.Serve(ctx, tools.NewServer(svc), transport)
}
