package registry

import (
	"context"
	"time"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// Service is the device registry as seen by ingest, liveness, firmware and
// the HTTP API.
type Service interface {
	Upsert(ctx context.Context, signal *models.DeviceSignal) (*models.Device, error)
	Touch(ctx context.Context, mac string, seenAt time.Time) (*models.Device, error)
	Get(ctx context.Context, mac string) (*models.Device, error)
	List(ctx context.Context) ([]models.DeviceSummary, error)
	ListByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error)
	Update(ctx context.Context, mac string, edit *models.DeviceEdit) (*models.Device, error)
	SetStatus(ctx context.Context, mac string, status models.DeviceStatus) (*models.Device, error)
	MarkOffline(ctx context.Context, mac string) (bool, error)
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error)
	Delete(ctx context.Context, mac string) error
	Summary(ctx context.Context) (*models.FleetStatus, error)
}
