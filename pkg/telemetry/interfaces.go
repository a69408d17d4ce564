package telemetry

import (
	"context"
	"time"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// Service is the measurement and log store.
type Service interface {
	AppendMeasurements(ctx context.Context, mac string, readings []models.Reading, at time.Time) ([]models.Measurement, error)
	AppendLog(ctx context.Context, mac string, level models.LogLevel, message string, at time.Time) (*models.DebugLog, error)
	Measurements(ctx context.Context, q *models.MeasurementQuery) ([]models.Measurement, error)
	WeatherReadings(ctx context.Context, mac string, limit int) ([]models.WeatherSample, error)
	WeatherHistory(ctx context.Context, mac string, since time.Time) ([]models.WeatherSample, error)
	Logs(ctx context.Context, mac string, limit int) ([]models.DebugLog, error)
	ClearLogs(ctx context.Context) (int64, error)
	ClearMeasurements(ctx context.Context) (int64, error)
}
