package types

// Strategy kinds understood by the portal fetcher.
const (
	// StrategyKindList expects a JSON list of rows, bare or wrapped in an object.
	StrategyKindList = "list"
	// StrategyKindObject expects a flat JSON object of key/value pairs.
	StrategyKindObject = "object"
	// StrategyKindHTML expects an HTML page with the overview table.
	StrategyKindHTML = "html"
)

// StationPlaceholder is replaced by the resolved station id in strategy
// params.
const StationPlaceholder = "{station}"

// StrategySpec describes one candidate endpoint for telemetry.
type StrategySpec struct {
	Name   string            `yaml:"name"`
	Kind   string            `yaml:"kind"`
	Method string            `yaml:"method"`
	Path   string            `yaml:"path"`
	Params map[string]string `yaml:"params,omitempty"`
}

// Overrides adjusts how the portal is probed without a rebuild. The zero
// value keeps the built-in behavior.
type Overrides struct {
	// Aliases adds extra key names per field (pv_power, load_power,
	// battery_soc). They are tried before the built-in names.
	Aliases map[string][]string `yaml:"aliases,omitempty"`
	// Strategies replaces the built-in strategy list when non-empty.
	Strategies []StrategySpec `yaml:"strategies,omitempty"`
}
