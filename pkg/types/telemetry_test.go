package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want StationID
	}{
		{"Number", `7`, "7"},
		{"LargeNumber", `20221942`, "20221942"},
		{"String", `"abc-1"`, "abc-1"},
		{"Null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id StationID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		var id StationID
		assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
	})
}

func TestNormalize(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CST", -6*3600))

	s := TelemetrySample{
		PVPower:    -12,
		LoadPower:  math.NaN(),
		BatterySOC: 130,
		ObservedAt: at,
	}.Normalize()

	assert.Equal(t, 0.0, s.PVPower, "negative solar should be clamped")
	assert.Equal(t, 0.0, s.LoadPower, "NaN load should be zeroed")
	assert.Equal(t, 100.0, s.BatterySOC, "SOC should be capped at 100")
	assert.Equal(t, time.UTC, s.ObservedAt.Location())
	assert.True(t, s.ObservedAt.Equal(at))

	s = TelemetrySample{PVPower: 150, LoadPower: 90, BatterySOC: -3}.Normalize()
	assert.Equal(t, 150.0, s.PVPower)
	assert.Equal(t, 90.0, s.LoadPower)
	assert.Equal(t, 0.0, s.BatterySOC)
}

func TestSnapshotJSON(t *testing.T) {
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(TelemetrySample{PVPower: 150, LoadPower: 90, BatterySOC: 42, ObservedAt: at}.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"battery_soc":42,"pv_power":150,"load_power":90,"last_updated":"2026-10-14T12:00:00Z"}`, string(b))

	zero := ZeroSample(at).Snapshot()
	assert.Equal(t, 0.0, zero.PVPower)
	assert.Equal(t, 0.0, zero.LoadPower)
	assert.Equal(t, 0.0, zero.BatterySOC)
	assert.Equal(t, at, zero.LastUpdated)
}
