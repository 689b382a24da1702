package geolocation

import "errors"

var (
	ErrMissingLocation  = errors.New("observer has no location")
	ErrMissingTelemetry = errors.New("observer has no camera telemetry")
	ErrMissingFrame     = errors.New("no frame to estimate from")
	ErrDegenerateBox    = errors.New("bounding box or frame has no area")
	ErrNoLocation       = errors.New("no location available")
)
