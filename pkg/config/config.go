package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

// Environment variables the relay reads. They provide the defaults for the
// matching flags so the binary can run without arguments.
const (
	EnvUsername      = "EG4_USER"
	EnvPassword      = "EG4_PASS"
	EnvStationID     = "EG4_STATION_ID"
	EnvAPIKey        = "SENSECRAFT_KEY"
	EnvDeviceID      = "SENSECRAFT_DEVICE_ID"
	EnvOutput        = "RELAY_OUTPUT"
	EnvOverridesFile = "RELAY_OVERRIDES_FILE"
)

// Output modes.
const (
	OutputPush = "push"
	OutputFile = "file"
)

// No-data policies.
const (
	NoDataZero  = "zero"
	NoDataAbort = "abort"
)

// DefaultDeviceID is pushed when neither a device id nor a station id is set.
const DefaultDeviceID = "20221942"

// Config holds everything a single run needs. It is built once per process
// and passed explicitly to each component.
type Config struct {
	PortalURL string
	Username  string
	Password  string
	StationID types.StationID

	IngestURL string
	APIKey    string
	DeviceID  string

	Output       string
	SnapshotPath string
	OnNoData     string
	Timeout      time.Duration

	OverridesFile   string
	Overrides       types.Overrides
	MetricsTextfile string
}

// Configured registers the relay flags and returns a Config that is filled in
// once lflag.Configure has parsed them.
func Configured() *Config {
	c := &Config{}

	portalURL := lflag.String("portal-url", "https://monitor.eg4electronics.com", "Base URL of the EG4 monitoring portal")
	username := lflag.String("eg4-user", os.Getenv(EnvUsername), "EG4 portal username (env "+EnvUsername+")")
	password := lflag.String("eg4-pass", os.Getenv(EnvPassword), "EG4 portal password (env "+EnvPassword+")")
	stationID := lflag.String("eg4-station-id", os.Getenv(EnvStationID), "EG4 station/plant id, auto-detected when empty (env "+EnvStationID+")")
	ingestURL := lflag.String("ingest-url", "https://sensecraft-hmi-api.seeed.cc/api/v1/user/device/push_data", "SenseCraft HMI push endpoint")
	apiKey := lflag.String("sensecraft-key", os.Getenv(EnvAPIKey), "SenseCraft API key (env "+EnvAPIKey+")")
	deviceID := lflag.String("sensecraft-device-id", os.Getenv(EnvDeviceID), "SenseCraft device id, defaults to the station id (env "+EnvDeviceID+")")
	output := lflag.String("output", envOr(EnvOutput, OutputPush), "Where to deliver telemetry (push or file)")
	snapshotPath := lflag.String("snapshot-path", "solar_data.json", "Snapshot file written in file output mode")
	onNoData := lflag.String("on-no-data", NoDataZero, "What to do when no strategy yields data (zero or abort)")
	timeout := lflag.Duration("timeout", 15*time.Second, "Timeout for each HTTP request")
	overridesFile := lflag.String("overrides-file", os.Getenv(EnvOverridesFile), "Optional YAML file with extra field aliases and strategies")
	metricsTextfile := lflag.String("metrics-textfile", "", "Optional path to write run metrics in the Prometheus text format")

	lflag.Do(func() {
		c.PortalURL = strings.TrimSpace(*portalURL)
		c.Username = strings.TrimSpace(*username)
		c.Password = *password
		c.StationID = types.StationID(strings.TrimSpace(*stationID))
		c.IngestURL = strings.TrimSpace(*ingestURL)
		c.APIKey = strings.TrimSpace(*apiKey)
		c.DeviceID = strings.TrimSpace(*deviceID)
		c.Output = strings.ToLower(strings.TrimSpace(*output))
		c.SnapshotPath = *snapshotPath
		c.OnNoData = strings.ToLower(strings.TrimSpace(*onNoData))
		c.Timeout = *timeout
		c.OverridesFile = strings.TrimSpace(*overridesFile)
		c.MetricsTextfile = *metricsTextfile
	})

	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load validates the config, reads the overrides file and applies the
// documented fallbacks for optional identifiers. requirePublisher is false
// for the pull API, which never pushes downstream.
func (c *Config) Load(ctx context.Context, requirePublisher bool) error {
	if err := c.Validate(requirePublisher); err != nil {
		return err
	}
	if c.OverridesFile != "" {
		o, err := LoadOverrides(c.OverridesFile)
		if err != nil {
			return err
		}
		c.Overrides = o
		log.Ctx(ctx).DebugContext(ctx, "loaded overrides", slog.String("path", c.OverridesFile), slog.Int("strategies", len(o.Strategies)))
	}
	c.applyFallbacks(ctx)
	return nil
}

// Validate checks that every required value is present. All missing values
// are reported together.
func (c *Config) Validate(requirePublisher bool) error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if c.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if requirePublisher && c.Output == OutputPush && c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %s", types.ErrConfiguration, strings.Join(missing, ", "))
	}

	if err := validateURL("portal-url", c.PortalURL); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", types.ErrConfiguration, c.Timeout)
	}
	switch c.OnNoData {
	case NoDataZero, NoDataAbort:
	default:
		return fmt.Errorf("%w: unknown on-no-data policy %q (expected %s or %s)", types.ErrConfiguration, c.OnNoData, NoDataZero, NoDataAbort)
	}
	if !requirePublisher {
		return nil
	}
	switch c.Output {
	case OutputPush:
		if err := validateURL("ingest-url", c.IngestURL); err != nil {
			return err
		}
	case OutputFile:
		if c.SnapshotPath == "" {
			return fmt.Errorf("%w: snapshot-path is required in file output mode", types.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown output %q (expected %s or %s)", types.ErrConfiguration, c.Output, OutputPush, OutputFile)
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s is required", types.ErrConfiguration, name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: failed to parse %s (%s): %w", types.ErrConfiguration, name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s must be an http(s) url, got %s", types.ErrConfiguration, name, raw)
	}
	return nil
}

func (c *Config) applyFallbacks(ctx context.Context) {
	if c.StationID == "" {
		log.Ctx(ctx).WarnContext(ctx, EnvStationID+" is not set, the station will be auto-detected from the portal")
	}
	if c.Output != OutputPush || c.DeviceID != "" {
		return
	}
	if c.StationID != "" {
		c.DeviceID = string(c.StationID)
		log.Ctx(ctx).WarnContext(ctx, EnvDeviceID+" is not set, using the station id as device id", slog.String("deviceID", c.DeviceID))
		return
	}
	c.DeviceID = DefaultDeviceID
	log.Ctx(ctx).WarnContext(ctx, EnvDeviceID+" is not set, using the default device id", slog.String("deviceID", c.DeviceID))
}

// Redact shortens a secret so it can be shown in logs.
func Redact(secret string) string {
	if len(secret) <= 12 {
		return "***"
	}
	return secret[:8] + "..." + secret[len(secret)-4:]
}
