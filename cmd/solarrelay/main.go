package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/raterudder/solarrelay/pkg/config"
	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/portal"
	"github.com/raterudder/solarrelay/pkg/publish"
	"github.com/raterudder/solarrelay/pkg/relay"
	"github.com/raterudder/solarrelay/pkg/types"

	"github.com/levenlabs/go-lflag"
)

func main() {
	cfg := config.Configured()
	pushTestSOC := lflag.String("push-test-soc", "", "Push only this battery_soc value to SenseCraft and exit, to check the dashboard setup")

	// parse flags
	lflag.Configure()

	level := log.LLogLevel()
	log.Configure(os.Stderr, log.FormatText, level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if *pushTestSOC != "" {
		err = runPushTest(ctx, cfg, *pushTestSOC)
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "relay failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Load(ctx, true); err != nil {
		return err
	}

	p, err := portal.NewClient(cfg.PortalURL, cfg.Timeout, cfg.Overrides)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrConfiguration, err)
	}
	pub, err := publish.New(cfg)
	if err != nil {
		return err
	}

	r := relay.New(cfg, p, pub)
	runErr := r.Run(ctx)
	if cfg.MetricsTextfile != "" {
		if err := r.Metrics().WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to write metrics textfile", slog.String("path", cfg.MetricsTextfile), slog.Any("error", err))
		}
	}
	return runErr
}

func runPushTest(ctx context.Context, cfg *config.Config, raw string) error {
	soc, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("%w: invalid push-test-soc %q: %w", types.ErrConfiguration, raw, err)
	}
	// only the push credentials matter for the probe
	cfg.Output = config.OutputPush
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: missing required environment variables: %s", types.ErrConfiguration, config.EnvAPIKey)
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = string(cfg.StationID)
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = config.DefaultDeviceID
	}

	p := publish.NewPush(cfg.IngestURL, cfg.APIKey, cfg.DeviceID, cfg.Timeout)
	if err := p.PushFields(ctx, map[string]float64{types.FieldBatterySOC: soc}); err != nil {
		if errors.Is(err, types.ErrPublish) {
			log.Ctx(ctx).InfoContext(ctx, "test push rejected, check the API key, the device id and the dashboard data keys", slog.String("deviceID", cfg.DeviceID), slog.String("apiKey", config.Redact(cfg.APIKey)))
		}
		return err
	}
	log.Ctx(ctx).InfoContext(ctx, "test push accepted", slog.String("deviceID", cfg.DeviceID), slog.Float64("batterySOC", soc))
	return nil
}
