package types

import "errors"

// Every failure a run can hit wraps exactly one of these so callers can
// classify it with errors.Is.
var (
	// ErrConfiguration means a required setting is missing or invalid.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication means the portal rejected the login or the response
	// was ambiguous.
	ErrAuthentication = errors.New("portal authentication failed")
	// ErrResolution means no station id was configured and none could be
	// discovered.
	ErrResolution = errors.New("station resolution failed")
	// ErrExtraction means no strategy produced a complete sample. It's the
	// only error that is not fatal by default.
	ErrExtraction = errors.New("no telemetry extracted")
	// ErrPublish means the downstream API or the snapshot file rejected the
	// sample.
	ErrPublish = errors.New("publish failed")
)
