package api

import (
	"errors"
	"net/http"

	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/firmware"
	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/registry"
	"github.com/mfreeman451/firmwave/pkg/telemetry"
)

var (
	errInvalidJSON   = errors.New("invalid JSON body")
	errInvalidLimit  = errors.New("limit must be a non-negative integer")
	errInvalidPeriod = errors.New("period must be day, week or month")
	errInvalidForm   = errors.New("invalid multipart form")
)

var badRequestErrors = []error{
	errInvalidJSON,
	errInvalidLimit,
	errInvalidPeriod,
	errInvalidForm,
	ingest.ErrMissingMAC,
	ingest.ErrNoReadings,
	ingest.ErrInvalidPayload,
	ingest.ErrInvalidStatus,
	registry.ErrInvalidMAC,
	registry.ErrInvalidStatus,
	registry.ErrInvalidHealth,
	registry.ErrEmptyEdit,
	registry.ErrEmptyName,
	telemetry.ErrNoReadings,
	telemetry.ErrMissingType,
	telemetry.ErrEmptyMessage,
	firmware.ErrMissingFile,
	firmware.ErrMissingVersion,
	firmware.ErrExtensionNotAllowed,
	firmware.ErrFileTooLarge,
	firmware.ErrMissingFirmwareID,
}

var notFoundErrors = []error{
	db.ErrDeviceNotFound,
	db.ErrFirmwareNotFound,
	firmware.ErrBlobNotFound,
}

// statusFor maps a service error to its HTTP status: validation errors are
// 400, missing entities 404, anything else 500.
func statusFor(err error) int {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}
