package publish

import (
	"context"
	"fmt"

	"github.com/raterudder/solarrelay/pkg/config"
	"github.com/raterudder/solarrelay/pkg/types"
)

// Publisher delivers a telemetry sample downstream.
type Publisher interface {
	Publish(ctx context.Context, sample types.TelemetrySample) error
}

// New returns the publisher selected by cfg.Output.
func New(cfg *config.Config) (Publisher, error) {
	switch cfg.Output {
	case config.OutputPush:
		return NewPush(cfg.IngestURL, cfg.APIKey, cfg.DeviceID, cfg.Timeout), nil
	case config.OutputFile:
		return NewSnapshot(cfg.SnapshotPath), nil
	default:
		return nil, fmt.Errorf("%w: unknown output %q", types.ErrConfiguration, cfg.Output)
	}
}
