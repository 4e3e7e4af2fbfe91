package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/types"
)

const stationListPath = "WManage/web/config/plant/list/viewer"

// keys that may hold the list of rows when a response wraps it in an object
var rowContainerKeys = []string{"rows", "data", "list", "result", "obj", "datas"}

// keys the portal has used for a station id, most specific first
var stationIDKeys = []string{"plantid", "stationid", "id"}

// ResolveStation returns configured when it is set. Otherwise it lists the
// stations on the account and picks the first one.
func (c *Client) ResolveStation(ctx context.Context, configured types.StationID) (types.StationID, error) {
	if configured != "" {
		return configured, nil
	}

	data := url.Values{}
	data.Set("page", "1")
	data.Set("rows", "20")

	req, err := c.newPostFormRequest(ctx, stationListPath, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrResolution, err)
	}
	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: listing stations: %w", types.ErrResolution, err)
	}

	rows, err := decodeRows(body)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode station list", slog.Any("error", err))
		return "", fmt.Errorf("%w: decoding station list: %w", types.ErrResolution, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: no stations found on the account", types.ErrResolution)
	}

	id := stationIDOf(rows[0])
	if id == "" {
		return "", fmt.Errorf("%w: first station has no id", types.ErrResolution)
	}
	if len(rows) > 1 {
		log.Ctx(ctx).WarnContext(ctx, "multiple stations found, using the first", slog.Int("count", len(rows)))
	}
	log.Ctx(ctx).InfoContext(ctx, "automatically selected station", slog.String("stationID", string(id)))
	return id, nil
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeRows accepts a bare JSON array of objects or an object wrapping one
// under a well-known key, one level deep.
func decodeRows(body []byte) ([]map[string]any, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return nil, err
	}
	rows, ok := findRows(v, 2)
	if !ok {
		return nil, errors.New("no list of rows in response")
	}
	return rows, nil
}

func findRows(v any, depth int) ([]map[string]any, bool) {
	switch t := v.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				rows = append(rows, obj)
			}
		}
		return rows, true
	case map[string]any:
		if depth == 0 {
			return nil, false
		}
		for _, key := range rowContainerKeys {
			for k, inner := range t {
				if !strings.EqualFold(k, key) {
					continue
				}
				if rows, ok := findRows(inner, depth-1); ok {
					return rows, true
				}
			}
		}
	}
	return nil, false
}

// rowHasStationID reports whether any of the id keys in row equals station.
// Overview rows carry both a row id and a plantId, so every key is checked.
func rowHasStationID(row map[string]any, station types.StationID) bool {
	for k, v := range row {
		for _, key := range stationIDKeys {
			if strings.EqualFold(k, key) && idString(v) == station {
				return true
			}
		}
	}
	return false
}

func idString(v any) types.StationID {
	switch id := v.(type) {
	case json.Number:
		return types.StationID(id.String())
	case string:
		return types.StationID(strings.TrimSpace(id))
	}
	return ""
}

// stationIDOf returns the station id of row. A plant or station id wins over
// a generic row id.
func stationIDOf(row map[string]any) types.StationID {
	for _, key := range stationIDKeys {
		for k, v := range row {
			if !strings.EqualFold(k, key) {
				continue
			}
			if id := idString(v); id != "" {
				return id
			}
		}
	}
	return ""
}
