package telemetry

import "errors"

var (
	ErrNoReadings   = errors.New("no readings")
	ErrMissingType  = errors.New("measurement type is required")
	ErrEmptyMessage = errors.New("log message is required")
)
