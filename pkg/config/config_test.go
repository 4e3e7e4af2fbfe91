package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		PortalURL:    "https://monitor.example.com",
		Username:     "user@example.com",
		Password:     "secret",
		IngestURL:    "https://ingest.example.com/push",
		APIKey:       "key-1234567890",
		Output:       OutputPush,
		SnapshotPath: "solar_data.json",
		OnNoData:     NoDataZero,
		Timeout:      10 * time.Second,
	}
}

func captureLogs(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return log.With(context.Background(), l), &buf
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, validConfig().Validate(true))
	})

	t.Run("MissingNamesEveryValue", func(t *testing.T) {
		c := validConfig()
		c.Username = ""
		c.APIKey = ""
		err := c.Validate(true)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		assert.Contains(t, err.Error(), EnvUsername)
		assert.Contains(t, err.Error(), EnvAPIKey)
		assert.NotContains(t, err.Error(), EnvPassword)
	})

	t.Run("APIKeyOptionalInFileMode", func(t *testing.T) {
		c := validConfig()
		c.APIKey = ""
		c.Output = OutputFile
		assert.NoError(t, c.Validate(true))
	})

	t.Run("APIKeyOptionalWithoutPublisher", func(t *testing.T) {
		c := validConfig()
		c.APIKey = ""
		assert.NoError(t, c.Validate(false))
	})

	t.Run("UnknownOutput", func(t *testing.T) {
		c := validConfig()
		c.Output = "mqtt"
		assert.ErrorIs(t, c.Validate(true), types.ErrConfiguration)
	})

	t.Run("UnknownPolicy", func(t *testing.T) {
		c := validConfig()
		c.OnNoData = "retry"
		assert.ErrorIs(t, c.Validate(true), types.ErrConfiguration)
	})

	t.Run("BadPortalURL", func(t *testing.T) {
		c := validConfig()
		c.PortalURL = "monitor.example.com"
		assert.ErrorIs(t, c.Validate(true), types.ErrConfiguration)
	})

	t.Run("NonPositiveTimeout", func(t *testing.T) {
		c := validConfig()
		c.Timeout = 0
		assert.ErrorIs(t, c.Validate(true), types.ErrConfiguration)
	})
}

func TestLoadFallbacks(t *testing.T) {
	t.Run("DefaultDeviceID", func(t *testing.T) {
		ctx, buf := captureLogs(t)
		c := validConfig()
		require.NoError(t, c.Load(ctx, true))
		assert.Equal(t, DefaultDeviceID, c.DeviceID)
		assert.Empty(t, c.StationID, "station stays empty for auto-detection")
		assert.Contains(t, buf.String(), EnvStationID+" is not set")
		assert.Contains(t, buf.String(), "level=WARN")
	})

	t.Run("StationAsDeviceID", func(t *testing.T) {
		ctx, _ := captureLogs(t)
		c := validConfig()
		c.StationID = "4242"
		require.NoError(t, c.Load(ctx, true))
		assert.Equal(t, "4242", c.DeviceID)
	})

	t.Run("ExplicitDeviceID", func(t *testing.T) {
		ctx, buf := captureLogs(t)
		c := validConfig()
		c.StationID = "4242"
		c.DeviceID = "99"
		require.NoError(t, c.Load(ctx, true))
		assert.Equal(t, "99", c.DeviceID)
		assert.NotContains(t, buf.String(), "level=WARN")
	})
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "ok.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
aliases:
  battery_soc: [bmsSoc]
strategies:
  - name: inverter-runtime
    kind: object
    method: post
    path: WManage/api/inverter/getInverterRuntime
    params:
      plantId: "{station}"
  - name: overview
    kind: html
    path: WManage/web/overview/global
`), 0o600))

		ctx, _ := captureLogs(t)
		c := validConfig()
		c.OverridesFile = path
		require.NoError(t, c.Load(ctx, true))

		assert.Equal(t, []string{"bmsSoc"}, c.Overrides.Aliases[types.FieldBatterySOC])
		require.Len(t, c.Overrides.Strategies, 2)
		assert.Equal(t, "POST", c.Overrides.Strategies[0].Method)
		assert.Equal(t, "GET", c.Overrides.Strategies[1].Method, "method should default to GET")
		assert.Equal(t, types.StationPlaceholder, c.Overrides.Strategies[0].Params["plantId"])
	})

	invalid := map[string]string{
		"UnknownField":  "aliases:\n  grid_power: [pGrid]\n",
		"UnknownKind":   "strategies:\n  - {name: a, kind: csv, path: x}\n",
		"Duplicate":     "strategies:\n  - {name: a, kind: list, path: x}\n  - {name: a, kind: list, path: y}\n",
		"MissingPath":   "strategies:\n  - {name: a, kind: list}\n",
		"BadMethod":     "strategies:\n  - {name: a, kind: list, path: x, method: PUT}\n",
		"MalformedYAML": "strategies: [",
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadOverrides(path)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadOverrides(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", Redact("short"))
	assert.Equal(t, "abcdefgh...wxyz", Redact("abcdefghijklmnopqrstuvwxyz"))
}
