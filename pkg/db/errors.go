// Package errors pkg/db/errors.go provides errors for the db package.

package db

import "errors"

var (
	// Lookup errors.

	ErrDeviceNotFound   = errors.New("device not found")
	ErrFirmwareNotFound = errors.New("firmware not found")

	// Operation errors.

	ErrFailedToClean     = errors.New("failed to clean")
	ErrFailedToBeginTx   = errors.New("failed to begin transaction")
	ErrFailedToScan      = errors.New("failed to scan")
	ErrFailedToQuery     = errors.New("failed to query")
	ErrFailedToInsert    = errors.New("failed to insert")
	ErrFailedToUpdate    = errors.New("failed to update")
	ErrFailedToDelete    = errors.New("failed to delete")
	ErrFailedToInit      = errors.New("failed to initialize schema")
	ErrFailedOpenDB      = errors.New("failed to open database")
	ErrFailedToCommit    = errors.New("failed to commit transaction")
	ErrInvalidSignal     = errors.New("invalid device signal")
	ErrEmptyMeasurements = errors.New("no measurements to insert")
)
