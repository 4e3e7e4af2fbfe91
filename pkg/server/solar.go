package server

import (
	"log/slog"
	"net/http"

	"github.com/raterudder/solarrelay/pkg/log"
	"github.com/raterudder/solarrelay/pkg/relay"
	"github.com/raterudder/solarrelay/pkg/types"
)

// noDataError tells displays that the zeros are not a real reading.
const noDataError = "No data"

// handleSolar collects a fresh sample and returns it as a snapshot. Errors
// are reported inside a zero snapshot with a 200 so displays keep rendering.
func (s *Server) handleSolar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	portal, err := s.newPortal()
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create portal client", slog.Any("error", err))
		writeJSON(w, s.errorSnapshot(err), http.StatusOK)
		return
	}

	sample, err := relay.New(s.cfg, portal, nil).Collect(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to collect telemetry", slog.Any("error", err))
		writeJSON(w, s.errorSnapshot(err), http.StatusOK)
		return
	}
	snap := sample.Snapshot()
	if sample.Source == "" {
		// zero-filled because no strategy produced data
		snap.Error = noDataError
	}
	writeJSON(w, snap, http.StatusOK)
}

func (s *Server) errorSnapshot(err error) types.Snapshot {
	snap := types.ZeroSample(s.now()).Snapshot()
	snap.Error = err.Error()
	return snap
}
