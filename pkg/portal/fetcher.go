package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

// Fetch walks the strategies in priority order and returns the first
// complete sample. When every strategy fails it returns the zero-filled
// sample along with an error wrapping types.ErrExtraction; the caller
// decides whether that is fatal.
func (c *Client) Fetch(ctx context.Context, station types.StationID) (types.TelemetrySample, error) {
	var errs []error
	for _, s := range c.strategies {
		sample, err := c.run(ctx, s, station)
		if err != nil {
			log.Ctx(ctx).InfoContext(
				ctx,
				"telemetry strategy failed",
				slog.String("strategy", s.spec.Name),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.spec.Name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		sample.ObservedAt = c.now()
		sample.Source = s.spec.Name
		sample = sample.Normalize()
		log.Ctx(ctx).InfoContext(
			ctx,
			"telemetry acquired",
			slog.String("strategy", s.spec.Name),
			slog.Float64("pvPower", sample.PVPower),
			slog.Float64("loadPower", sample.LoadPower),
			slog.Float64("batterySOC", sample.BatterySOC),
		)
		return sample, nil
	}

	return types.ZeroSample(c.now()), fmt.Errorf("%w: %d strategies failed: %w", types.ErrExtraction, len(errs), errors.Join(errs...))
}
