package config

import (
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/raterudder/solarrelay/pkg/types"
	"gopkg.in/yaml.v3"
)

// LoadOverrides reads and validates a YAML overrides file, for example:
//
//	aliases:
//	  battery_soc: [bmsSoc]
//	strategies:
//	  - name: inverter-runtime
//	    kind: object
//	    method: POST
//	    path: WManage/api/inverter/getInverterRuntime
//	    params:
//	      plantId: "{station}"
func LoadOverrides(path string) (types.Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Overrides{}, fmt.Errorf("%w: read overrides file: %w", types.ErrConfiguration, err)
	}

	var o types.Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return types.Overrides{}, fmt.Errorf("%w: decode overrides yaml: %w", types.ErrConfiguration, err)
	}
	if err := validateOverrides(&o); err != nil {
		return types.Overrides{}, fmt.Errorf("%w: %s: %w", types.ErrConfiguration, path, err)
	}
	return o, nil
}

func validateOverrides(o *types.Overrides) error {
	for field := range o.Aliases {
		if !slices.Contains(types.Fields, field) {
			return fmt.Errorf("unknown alias field %q (expected one of %s)", field, strings.Join(types.Fields, ", "))
		}
	}

	seen := make(map[string]bool, len(o.Strategies))
	for i := range o.Strategies {
		s := &o.Strategies[i]
		if s.Name == "" {
			return fmt.Errorf("strategy %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = true

		switch s.Kind {
		case types.StrategyKindList, types.StrategyKindObject, types.StrategyKindHTML:
		default:
			return fmt.Errorf("strategy %q has unknown kind %q", s.Name, s.Kind)
		}

		s.Method = strings.ToUpper(s.Method)
		switch s.Method {
		case "":
			s.Method = http.MethodGet
		case http.MethodGet, http.MethodPost:
		default:
			return fmt.Errorf("strategy %q has unsupported method %q", s.Name, s.Method)
		}

		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("strategy %q has no path", s.Name)
		}
	}
	return nil
}
