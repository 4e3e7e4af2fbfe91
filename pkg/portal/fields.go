package portal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/raterudder/solarrelay/pkg/types"
)

// defaultAliases are the key names the portal has used for each field across
// firmware and portal versions, in lookup order.
var defaultAliases = map[string][]string{
	types.FieldPVPower:    {"ppv", "pvPower", "pv_power", "solarPower", "pPv", "ppvTotal"},
	types.FieldLoadPower:  {"pConsumption", "consumptionPower", "loadPower", "load_power", "pLoad", "consumption"},
	types.FieldBatterySOC: {"soc", "batterySoc", "battery_soc", "batteryCapacity", "bmsSoc"},
}

// fieldAliases maps a field to lowercased key names.
type fieldAliases map[string][]string

func newFieldAliases(extra map[string][]string) fieldAliases {
	a := make(fieldAliases, len(types.Fields))
	for _, field := range types.Fields {
		seen := map[string]bool{}
		for _, name := range append(append([]string{}, extra[field]...), defaultAliases[field]...) {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			a[field] = append(a[field], name)
		}
	}
	return a
}

// extract pulls the three fields out of a decoded JSON object. Keys are
// matched case-insensitively. It returns the fields it could not find; a key
// that is present with an unparseable value counts as found with value 0.
func (a fieldAliases) extract(obj map[string]any) (types.TelemetrySample, []string) {
	lowered := make(map[string]any, len(obj))
	for k, v := range obj {
		lowered[strings.ToLower(k)] = v
	}

	var sample types.TelemetrySample
	var missing []string
	for _, field := range types.Fields {
		v, ok := a.lookup(lowered, field)
		if !ok {
			missing = append(missing, field)
			continue
		}
		switch field {
		case types.FieldPVPower:
			sample.PVPower = v
		case types.FieldLoadPower:
			sample.LoadPower = v
		case types.FieldBatterySOC:
			sample.BatterySOC = v
		}
	}
	return sample, missing
}

func (a fieldAliases) lookup(lowered map[string]any, field string) (float64, bool) {
	for _, name := range a[field] {
		v, ok := lowered[name]
		if !ok || v == nil {
			continue
		}
		return coerceNumber(v), true
	}
	return 0, false
}

// coerceNumber converts a JSON value into a float, returning 0 for anything
// that can't be read as a number.
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := parseQuantity(n)
		return f
	default:
		return 0
	}
}

// commas are only accepted as thousands separators
var thousandsRegexp = regexp.MustCompile(`^[-+]?\d{1,3}(?:,\d{3})+(?:\.\d*)?(?:\s*[a-zA-Z%]*)$`)

var quantityRegexp = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)\s*([a-zA-Z%]*)$`)

// parseQuantity reads strings like "150", "73 %", "120 W" or "1.2 kW" and
// returns the value in base units (watts, percent).
func parseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if !thousandsRegexp.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	m := quantityRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "", "%", "w":
		return f, true
	case "kw":
		return f * 1000, true
	default:
		return 0, false
	}
}

func missingFieldsError(missing []string) error {
	return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
}
