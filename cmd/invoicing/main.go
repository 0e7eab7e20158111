package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-invoicing-client/internal/cli"
	"github.com/goliatone/go-invoicing-client/internal/config"
	"github.com/goliatone/go-invoicing-client/internal/logger"
	"github.com/goliatone/go-invoicing-client/pkg/di"
)

func main() {
	// Load configuration; commands that need the backend report the error
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.Log); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	factory := func(ctx context.Context) (*di.Container, error) {
		if cfgErr != nil {
			return nil, cfgErr
		}
		return di.NewContainer(ctx, *cfg)
	}

	code := cli.Execute(ctx, factory, os.Args[1:])
	stop()
	os.Exit(code)
}
