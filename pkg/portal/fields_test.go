package portal

import (
	"encoding/json"
	"testing"

	"github.com/raterudder/solarrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeObject(t *testing.T, s string) map[string]any {
	t.Helper()
	v, err := decodeJSON([]byte(s))
	require.NoError(t, err)
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	return obj
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"150", 150, true},
		{"73 %", 73, true},
		{"73%", 73, true},
		{"120 W", 120, true},
		{"120w", 120, true},
		{"1.2 kW", 1200, true},
		{" 4,500 W ", 4500, true},
		{"-15", -15, true},
		{".5", 0.5, true},
		{"", 0, false},
		{"--", 0, false},
		{"N/A", 0, false},
		{"12 kWh", 0, false},
		{"1,234,567 W", 1234567, true},
		{"1,5 kW", 0, false},
		{"12,5 %", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseQuantity(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCoerceNumber(t *testing.T) {
	assert.Equal(t, 42.0, coerceNumber(json.Number("42")))
	assert.Equal(t, 0.0, coerceNumber(json.Number("x")))
	assert.Equal(t, 1.5, coerceNumber(1.5))
	assert.Equal(t, 3.0, coerceNumber(3))
	assert.Equal(t, 90.0, coerceNumber("90"))
	assert.Equal(t, 0.0, coerceNumber("offline"), "unparseable strings default to zero")
	assert.Equal(t, 0.0, coerceNumber(true))
	assert.Equal(t, 0.0, coerceNumber([]any{1}))
}

func TestExtract(t *testing.T) {
	a := newFieldAliases(nil)

	t.Run("StringValues", func(t *testing.T) {
		s, missing := a.extract(decodeObject(t, `{"ppv": "150", "pConsumption": "90", "soc": "42 %"}`))
		assert.Empty(t, missing)
		assert.Equal(t, 150.0, s.PVPower)
		assert.Equal(t, 90.0, s.LoadPower)
		assert.Equal(t, 42.0, s.BatterySOC)
	})

	t.Run("AlternateNamesAndCase", func(t *testing.T) {
		s, missing := a.extract(decodeObject(t, `{"PVPower": 1200, "load_power": 300.5, "BatterySoc": 88}`))
		assert.Empty(t, missing)
		assert.Equal(t, 1200.0, s.PVPower)
		assert.Equal(t, 300.5, s.LoadPower)
		assert.Equal(t, 88.0, s.BatterySOC)
	})

	t.Run("UnparseableCountsAsFound", func(t *testing.T) {
		s, missing := a.extract(decodeObject(t, `{"ppv": "--", "pConsumption": 5, "soc": 10}`))
		assert.Empty(t, missing)
		assert.Equal(t, 0.0, s.PVPower)
	})

	t.Run("NullIsMissing", func(t *testing.T) {
		_, missing := a.extract(decodeObject(t, `{"ppv": null, "pConsumption": 5}`))
		assert.Equal(t, []string{types.FieldPVPower, types.FieldBatterySOC}, missing)
	})

	t.Run("ExtraAliasesFirst", func(t *testing.T) {
		custom := newFieldAliases(map[string][]string{types.FieldBatterySOC: {"socTotal", "SOC"}})
		assert.Equal(t, []string{"soctotal", "soc"}, custom[types.FieldBatterySOC][:2])
		s, missing := custom.extract(decodeObject(t, `{"ppv": 1, "pLoad": 2, "soc": 10, "socTotal": 55}`))
		assert.Empty(t, missing)
		assert.Equal(t, 55.0, s.BatterySOC)
	})
}
