package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/raterudder/solarrelay/pkg/common"
	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

// Push sends samples to the SenseCraft HMI ingest API.
type Push struct {
	client    *http.Client
	ingestURL string
	apiKey    string
	deviceID  string
}

// NewPush returns a Push publisher for the given device.
func NewPush(ingestURL, apiKey, deviceID string, timeout time.Duration) *Push {
	return &Push{
		client:    common.HTTPClient(timeout),
		ingestURL: ingestURL,
		apiKey:    apiKey,
		deviceID:  deviceID,
	}
}

type pushRequest struct {
	DeviceID string             `json:"device_id"`
	Data     map[string]float64 `json:"data"`
}

// Publish pushes the sample's three fields.
func (p *Push) Publish(ctx context.Context, sample types.TelemetrySample) error {
	return p.PushFields(ctx, map[string]float64{
		types.FieldPVPower:    sample.PVPower,
		types.FieldBatterySOC: sample.BatterySOC,
		types.FieldLoadPower:  sample.LoadPower,
	})
}

// PushFields pushes an arbitrary set of data keys. It is used directly to
// send a single test value when setting up a dashboard.
func (p *Push) PushFields(ctx context.Context, data map[string]float64) error {
	b, err := json.Marshal(pushRequest{DeviceID: p.deviceID, Data: data})
	if err != nil {
		return fmt.Errorf("%w: failed to encode request: %w", types.ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.ingestURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", types.ErrPublish, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)

	log.Ctx(ctx).DebugContext(ctx, "pushing telemetry", slog.String("deviceID", p.deviceID), slog.Any("data", data))

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %w", types.ErrPublish, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		log.Ctx(ctx).InfoContext(ctx, "pushed telemetry", slog.String("deviceID", p.deviceID), slog.Int("status", resp.StatusCode))
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key (status 401)", types.ErrPublish)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: device %s not found (status 404)", types.ErrPublish, p.deviceID)
	case resp.StatusCode >= 500:
		return fmt.Errorf(
			"%w: server error (status %d): %s; make sure %s, %s and %s are defined as data keys on the SenseCraft dashboard",
			types.ErrPublish, resp.StatusCode, bytes.TrimSpace(body), types.FieldPVPower, types.FieldLoadPower, types.FieldBatterySOC,
		)
	default:
		return fmt.Errorf("%w: unexpected status %d: %s", types.ErrPublish, resp.StatusCode, bytes.TrimSpace(body))
	}
}
