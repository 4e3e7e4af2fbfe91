package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raterudder/solarrelay/pkg/config"
	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/portal"
	"github.com/raterudder/solarrelay/pkg/relay"
	"github.com/raterudder/solarrelay/pkg/server"

	"github.com/levenlabs/go-lflag"
)

func main() {
	// init packages
	cfg := config.Configured()

	// init server
	srv := server.Configured(cfg, func() (relay.Portal, error) {
		return portal.NewClient(cfg.PortalURL, cfg.Timeout, cfg.Overrides)
	})

	// parse flags
	lflag.Configure()

	level := log.LLogLevel()
	log.Configure(os.Stdout, log.FormatJSON, level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cfg.Load(ctx, false); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
