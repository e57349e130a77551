// Package cafes parses cafes server flags and launches the service.
package cafes

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/cafes/internal/platform/cmd"
	server "github.com/louisbranch/cafes/internal/services/cafes/app"
)

// Config holds cafes command configuration.
type Config struct {
	HTTPAddr   string `env:"HTTP_ADDR"   envDefault:"localhost:5000"`
	DBPath     string `env:"DB_PATH"     envDefault:"data/cafes.db"`
	APIKey     string `env:"API_KEY"`
	HealthAddr string `env:"HEALTH_ADDR"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Credential required to delete cafes (empty disables deletes)")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "Optional gRPC health listen address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the cafes HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCafes, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:   cfg.HTTPAddr,
			DBPath:     cfg.DBPath,
			APIKey:     cfg.APIKey,
			HealthAddr: cfg.HealthAddr,
		})
	})
}
