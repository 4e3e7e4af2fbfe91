package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raterudder/solarrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPublish(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/api/v1/user/device/push_data", r.URL.Path)
			assert.Equal(t, "secret-key", r.Header.Get("api-key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Contains(t, r.Header.Get("User-Agent"), "SolarRelay/")

			var body struct {
				DeviceID string             `json:"device_id"`
				Data     map[string]float64 `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "12345", body.DeviceID)
			assert.Equal(t, map[string]float64{"pv_power": 150, "battery_soc": 42, "load_power": 90}, body.Data)
			w.Write([]byte(`{"code":0}`))
		}))
		defer ts.Close()

		p := NewPush(ts.URL+"/api/v1/user/device/push_data", "secret-key", "12345", time.Second)
		err := p.Publish(context.Background(), types.TelemetrySample{PVPower: 150, LoadPower: 90, BatterySOC: 42})
		require.NoError(t, err)
	})

	failures := map[string]struct {
		status int
		want   string
	}{
		"Unauthorized": {http.StatusUnauthorized, "invalid API key"},
		"NotFound":     {http.StatusNotFound, "device 12345 not found"},
		"ServerError":  {http.StatusInternalServerError, "pv_power, load_power and battery_soc are defined as data keys"},
		"BadRequest":   {http.StatusBadRequest, "unexpected status 400"},
	}
	for name, tt := range failures {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer ts.Close()

			p := NewPush(ts.URL, "k", "12345", time.Second)
			err := p.Publish(context.Background(), types.TelemetrySample{})
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrPublish)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("Unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := ts.URL
		ts.Close()

		p := NewPush(url, "k", "12345", time.Second)
		assert.ErrorIs(t, p.Publish(context.Background(), types.TelemetrySample{}), types.ErrPublish)
	})
}

func TestPushFields(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer ts.Close()

	p := NewPush(ts.URL, "k", "dev", time.Second)
	require.NoError(t, p.PushFields(context.Background(), map[string]float64{"battery_soc": 55}))
	assert.Equal(t, map[string]any{"device_id": "dev", "data": map[string]any{"battery_soc": 55.0}}, got)
}
