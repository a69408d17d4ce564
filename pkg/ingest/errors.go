package ingest

import "errors"

var (
	ErrMissingMAC     = errors.New("valid MAC address is required")
	ErrNoReadings     = errors.New("at least one valid measurement is required")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrInvalidStatus  = errors.New("invalid device status")
	ErrMissingMessage = errors.New("log message is required")
	ErrUnknownTopic   = errors.New("unknown topic")
	ErrHandlerPanic   = errors.New("message handler panicked")
)
