// Package main starts the cafes HTTP service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	cafescmd "github.com/louisbranch/cafes/internal/cmd/cafes"
	entrypoint "github.com/louisbranch/cafes/internal/platform/cmd"
	"github.com/louisbranch/cafes/internal/platform/config"
)

func main() {
	cfg, err := cafescmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceCafes))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cafescmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
