package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Field names used by the downstream API and the snapshot file.
const (
	FieldPVPower    = "pv_power"
	FieldLoadPower  = "load_power"
	FieldBatterySOC = "battery_soc"
)

// Fields lists the telemetry fields in the order they are reported.
var Fields = []string{FieldPVPower, FieldLoadPower, FieldBatterySOC}

// StationID is the portal's identifier for a plant. The portal returns it as
// either a JSON number or a string depending on the endpoint.
type StationID string

// UnmarshalJSON accepts both string and numeric ids.
func (s *StationID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = StationID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid station id %s: %w", b, err)
	}
	*s = StationID(n.String())
	return nil
}

// TelemetrySample is a single reading taken from the portal.
type TelemetrySample struct {
	// PVPower is the solar generation in watts.
	PVPower float64
	// LoadPower is the household consumption in watts.
	LoadPower float64
	// BatterySOC is the battery state of charge in percent.
	BatterySOC float64
	// ObservedAt is when the sample was extracted, in UTC.
	ObservedAt time.Time
	// Source names the strategy that produced the sample. It is empty for
	// the zero-filled default.
	Source string
}

// ZeroSample returns the sample reported when no strategy produced data.
func ZeroSample(now time.Time) TelemetrySample {
	return TelemetrySample{ObservedAt: now.UTC()}
}

// Normalize clamps the sample into its valid ranges: power can't be negative
// and the state of charge is kept within [0, 100]. Non-finite values become 0.
func (s TelemetrySample) Normalize() TelemetrySample {
	s.PVPower = nonNegative(s.PVPower)
	s.LoadPower = nonNegative(s.LoadPower)
	switch {
	case math.IsNaN(s.BatterySOC), s.BatterySOC < 0:
		s.BatterySOC = 0
	case s.BatterySOC > 100:
		s.BatterySOC = 100
	}
	s.ObservedAt = s.ObservedAt.UTC()
	return s
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Snapshot is the JSON document written to disk and served to pull clients.
type Snapshot struct {
	BatterySOC  float64   `json:"battery_soc"`
	PVPower     float64   `json:"pv_power"`
	LoadPower   float64   `json:"load_power"`
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// Snapshot converts the sample into its snapshot representation.
func (s TelemetrySample) Snapshot() Snapshot {
	return Snapshot{
		BatterySOC:  s.BatterySOC,
		PVPower:     s.PVPower,
		LoadPower:   s.LoadPower,
		LastUpdated: s.ObservedAt.UTC(),
	}
}
