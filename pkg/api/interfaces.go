package api

import (
	"context"

	"github.com/mfreeman451/firmwave/pkg/ingest"
	"github.com/mfreeman451/firmwave/pkg/models"
)

//go:generate mockgen -destination=mock_api.go -package=api github.com/mfreeman451/firmwave/pkg/api Ingestor,Sweeper,HealthChecker

// Ingestor accepts device signals submitted over HTTP.
type Ingestor interface {
	RegisterDevice(ctx context.Context, req *ingest.RegisterPayload) (*models.Device, error)
	RecordWeather(ctx context.Context, req *ingest.SensorPayload) (*ingest.WeatherResult, error)
	RecordMeasurements(ctx context.Context, req *ingest.MeasurementsPayload) ([]models.Measurement, error)
}

// Sweeper runs the liveness check before devices are listed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// HealthChecker reports on the backing store.
type HealthChecker interface {
	Ping(ctx context.Context) error
	CountMeasurements(ctx context.Context) (int, error)
}
