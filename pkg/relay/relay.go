package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raterudder/solarrelay/pkg/config"
	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/publish"
	"github.com/raterudder/solarrelay/pkg/types"
)

// Portal is the part of the portal client the relay depends on.
type Portal interface {
	Login(ctx context.Context, username, password string) error
	ResolveStation(ctx context.Context, configured types.StationID) (types.StationID, error)
	Fetch(ctx context.Context, station types.StationID) (types.TelemetrySample, error)
}

// Relay carries everything a single run needs.
type Relay struct {
	cfg       *config.Config
	portal    Portal
	publisher publish.Publisher
	metrics   *Metrics
	now       func() time.Time
}

// New returns a Relay. publisher may be nil when only Collect is used.
func New(cfg *config.Config, portal Portal, publisher publish.Publisher) *Relay {
	return &Relay{
		cfg:       cfg,
		portal:    portal,
		publisher: publisher,
		metrics:   NewMetrics(),
		now:       time.Now,
	}
}

// Metrics returns the metrics updated by Collect and Run.
func (r *Relay) Metrics() *Metrics {
	return r.metrics
}

// Collect logs in, resolves the station and fetches a sample. When no
// strategy produced data the zero sample is returned with a nil error under
// the zero policy and with the extraction error under the abort policy.
func (r *Relay) Collect(ctx context.Context) (types.TelemetrySample, error) {
	err := r.portal.Login(ctx, r.cfg.Username, r.cfg.Password)
	r.metrics.stage(StageLogin, err)
	if err != nil {
		return types.TelemetrySample{}, err
	}

	station, err := r.portal.ResolveStation(ctx, r.cfg.StationID)
	r.metrics.stage(StageResolve, err)
	if err != nil {
		return types.TelemetrySample{}, err
	}
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("station", string(station))))

	sample, err := r.portal.Fetch(ctx, station)
	r.metrics.stage(StageFetch, err)
	if err != nil {
		if !errors.Is(err, types.ErrExtraction) || r.cfg.OnNoData == config.NoDataAbort {
			return types.TelemetrySample{}, err
		}
		log.Ctx(ctx).WarnContext(
			ctx,
			"no telemetry strategy returned data, reporting zeros",
			slog.Any("error", err),
		)
	}

	r.metrics.pvPower.Set(sample.PVPower)
	r.metrics.loadPower.Set(sample.LoadPower)
	r.metrics.batterySOC.Set(sample.BatterySOC)
	return sample, nil
}

// Run executes one full pass and publishes the sample. It returns the first
// fatal error.
func (r *Relay) Run(ctx context.Context) error {
	start := r.now()
	defer func() {
		r.metrics.lastRun.Set(float64(start.Unix()))
		r.metrics.runDuration.Set(r.now().Sub(start).Seconds())
	}()

	if r.publisher == nil {
		return fmt.Errorf("%w: no publisher configured", types.ErrConfiguration)
	}

	sample, err := r.Collect(ctx)
	if err != nil {
		return err
	}

	err = r.publisher.Publish(ctx, sample)
	r.metrics.stage(StagePublish, err)
	if err != nil {
		return err
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"relay run complete",
		slog.String("output", r.cfg.Output),
		slog.Float64("pvPower", sample.PVPower),
		slog.Float64("loadPower", sample.LoadPower),
		slog.Float64("batterySOC", sample.BatterySOC),
	)
	return nil
}
