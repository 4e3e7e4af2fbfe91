package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raterudder/solarrelay/pkg/types"
)

const overviewPagePath = "WManage/web/overview/global"

// defaultStrategies are tried in order until one yields all three fields.
var defaultStrategies = []types.StrategySpec{
	{
		Name:   "plant-overview",
		Kind:   types.StrategyKindList,
		Method: http.MethodPost,
		Path:   "WManage/api/plantOverview/list/viewer",
		Params: map[string]string{"page": "1", "rows": "50", "plantId": types.StationPlaceholder},
	},
	{
		Name:   "plant-runtime",
		Kind:   types.StrategyKindObject,
		Method: http.MethodGet,
		Path:   "WManage/api/plantOverview/runtime",
		Params: map[string]string{"plantId": types.StationPlaceholder},
	},
	{
		Name:   "overview-page",
		Kind:   types.StrategyKindHTML,
		Method: http.MethodGet,
		Path:   overviewPagePath,
	},
}

// the object strategy also looks one level down under these keys
var objectContainerKeys = []string{"data", "result", "obj"}

type parseFunc func(body []byte, station types.StationID, aliases fieldAliases) (types.TelemetrySample, error)

type strategy struct {
	spec  types.StrategySpec
	parse parseFunc
}

func buildStrategies(specs []types.StrategySpec) ([]strategy, error) {
	out := make([]strategy, 0, len(specs))
	for _, spec := range specs {
		var p parseFunc
		switch spec.Kind {
		case types.StrategyKindList:
			p = parseList
		case types.StrategyKindObject:
			p = parseObject
		case types.StrategyKindHTML:
			p = parseOverviewTable
		default:
			return nil, fmt.Errorf("strategy %q has unknown kind %q", spec.Name, spec.Kind)
		}
		out = append(out, strategy{spec: spec, parse: p})
	}
	return out, nil
}

// run issues the strategy's request and parses the response.
func (c *Client) run(ctx context.Context, s strategy, station types.StationID) (types.TelemetrySample, error) {
	params := url.Values{}
	for k, v := range s.spec.Params {
		v = strings.ReplaceAll(v, types.StationPlaceholder, string(station))
		if v == "" {
			continue
		}
		params.Set(k, v)
	}

	var req *http.Request
	var err error
	if s.spec.Method == http.MethodPost {
		req, err = c.newPostFormRequest(ctx, s.spec.Path, params)
	} else {
		req, err = c.newGetRequest(ctx, s.spec.Path, params)
	}
	if err != nil {
		return types.TelemetrySample{}, err
	}

	body, err := c.do(req)
	if err != nil {
		return types.TelemetrySample{}, err
	}
	return s.parse(body, station, c.aliases)
}

// parseList handles responses shaped like {"rows": [{...}, ...]}. The row for
// the station is used when the rows carry ids, otherwise the first row.
func parseList(body []byte, station types.StationID, aliases fieldAliases) (types.TelemetrySample, error) {
	rows, err := decodeRows(body)
	if err != nil {
		return types.TelemetrySample{}, err
	}
	if len(rows) == 0 {
		return types.TelemetrySample{}, errors.New("empty list")
	}

	row := rows[0]
	if station != "" {
		for _, r := range rows {
			if rowHasStationID(r, station) {
				row = r
				break
			}
		}
	}

	sample, missing := aliases.extract(row)
	if len(missing) > 0 {
		return types.TelemetrySample{}, missingFieldsError(missing)
	}
	return sample, nil
}

// parseObject handles a flat key/value object, either at the top level or
// nested under a wrapper key like "data".
func parseObject(body []byte, _ types.StationID, aliases fieldAliases) (types.TelemetrySample, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return types.TelemetrySample{}, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return types.TelemetrySample{}, errors.New("response is not an object")
	}

	sample, missing := aliases.extract(obj)
	if len(missing) == 0 {
		return sample, nil
	}
	for _, key := range objectContainerKeys {
		for k, inner := range obj {
			innerObj, ok := inner.(map[string]any)
			if !ok || !strings.EqualFold(k, key) {
				continue
			}
			s, m := aliases.extract(innerObj)
			if len(m) == 0 {
				return s, nil
			}
			if len(m) < len(missing) {
				missing = m
			}
		}
	}
	return types.TelemetrySample{}, missingFieldsError(missing)
}

// overview table columns
const (
	overviewStatusCol = 1
	overviewPVCol     = 2
	overviewLoadCol   = 5
	overviewSOCCol    = 6
)

// parseOverviewTable scrapes the overview page. The data row is the first
// row of the first table with more than 6 cells whose status cell reads
// Normal or Offline.
func parseOverviewTable(body []byte, _ types.StationID, _ fieldAliases) (types.TelemetrySample, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.TelemetrySample{}, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return types.TelemetrySample{}, errors.New("no table on overview page")
	}

	var sample types.TelemetrySample
	var found bool
	var parseErr error
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() <= overviewSOCCol {
			return true
		}
		status := strings.TrimSpace(cells.Eq(overviewStatusCol).Text())
		if !strings.Contains(status, "Normal") && !strings.Contains(status, "Offline") {
			return true
		}

		found = true
		vals := make([]float64, 0, 3)
		for _, col := range []int{overviewPVCol, overviewLoadCol, overviewSOCCol} {
			text := strings.TrimSpace(cells.Eq(col).Text())
			v, ok := parseQuantity(text)
			if !ok {
				parseErr = fmt.Errorf("unparseable cell %d: %q", col, text)
				return false
			}
			vals = append(vals, v)
		}
		sample = types.TelemetrySample{PVPower: vals[0], LoadPower: vals[1], BatterySOC: vals[2]}
		return false
	})

	if parseErr != nil {
		return types.TelemetrySample{}, parseErr
	}
	if !found {
		return types.TelemetrySample{}, errors.New("no row with Normal or Offline status")
	}
	return sample, nil
}
