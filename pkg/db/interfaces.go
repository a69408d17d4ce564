// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// Service represents all database operations.
type Service interface {
	// Core database operations.

	Ping(ctx context.Context) error
	Close() error

	// Device operations.

	UpsertDevice(ctx context.Context, signal *models.DeviceSignal) (*models.Device, error)
	TouchDevice(ctx context.Context, mac string, seenAt time.Time) (*models.Device, error)
	GetDevice(ctx context.Context, mac string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.DeviceSummary, error)
	ListDevicesByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error)
	UpdateDevice(ctx context.Context, mac string, edit *models.DeviceEdit) (*models.Device, error)
	SetDeviceStatus(ctx context.Context, mac string, status models.DeviceStatus) (*models.Device, error)
	MarkOffline(ctx context.Context, mac string) (*models.Device, bool, error)
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error)
	DeleteDevice(ctx context.Context, mac string) error
	CountDevicesByStatus(ctx context.Context) (map[models.DeviceStatus]int, error)

	// Measurement and log operations.

	InsertMeasurements(ctx context.Context, mac string, readings []models.Reading, at time.Time) ([]models.Measurement, error)
	QueryMeasurements(ctx context.Context, q *models.MeasurementQuery) ([]models.Measurement, error)
	QueryWeather(ctx context.Context, mac string, limit int) ([]models.Measurement, error)
	CountMeasurements(ctx context.Context) (int, error)
	ClearMeasurements(ctx context.Context) (int64, error)
	InsertLog(ctx context.Context, entry *models.DebugLog) (*models.DebugLog, error)
	QueryLogs(ctx context.Context, mac string, limit int) ([]models.DebugLog, error)
	ClearLogs(ctx context.Context) (int64, error)

	// Firmware operations.

	InsertFirmware(ctx context.Context, fw *models.Firmware) error
	GetFirmware(ctx context.Context, id string) (*models.Firmware, error)
	ListFirmware(ctx context.Context) ([]models.Firmware, error)

	// Maintenance operations.

	CleanOldData(ctx context.Context, retentionPeriod time.Duration) (int64, error)
}
