// Package telemetry stores and reads device measurements and debug logs.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mfreeman451/firmwave/pkg/db"
	"github.com/mfreeman451/firmwave/pkg/logger"
	"github.com/mfreeman451/firmwave/pkg/models"
	"github.com/mfreeman451/firmwave/pkg/monitoring"
	"github.com/mfreeman451/firmwave/pkg/notify"
)

const (
	DefaultMeasurementLimit = 100
	MaxQueryLimit           = 500
	DefaultWeatherLimit     = 10
	DefaultLogLimit         = 100

	retentionInterval = time.Hour
)

// Store is the measurement and log service.
type Store struct {
	store     db.Service
	notifier  notify.Notifier
	logger    logger.Logger
	retention time.Duration
	cleaner   *monitoring.Monitor
}

var _ Service = (*Store)(nil)

// New builds the service. A positive retention enables hourly cleanup of
// measurements and logs older than that window once Start is called.
func New(store db.Service, notifier notify.Notifier, retention time.Duration, log logger.Logger) *Store {
	s := &Store{
		store:     store,
		notifier:  notifier,
		logger:    log.WithComponent("telemetry"),
		retention: retention,
	}

	if retention > 0 {
		s.cleaner = monitoring.NewMonitor(monitoring.MonitorConfig{
			Name:           "retention",
			Interval:       retentionInterval,
			AlertThreshold: retention,
		}, log)
	}

	return s
}

// AppendMeasurements stores readings for an existing device, all stamped
// with at.
func (s *Store) AppendMeasurements(
	ctx context.Context, mac string, readings []models.Reading, at time.Time) ([]models.Measurement, error) {
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}

	for i := range readings {
		if strings.TrimSpace(readings[i].Type) == "" {
			return nil, fmt.Errorf("%w: reading %d", ErrMissingType, i)
		}
	}

	return s.store.InsertMeasurements(ctx, models.NormalizeMAC(mac), readings, at)
}

// AppendLog stores one debug line for an existing device and announces it.
func (s *Store) AppendLog(
	ctx context.Context, mac string, level models.LogLevel, message string, at time.Time) (*models.DebugLog, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	entry, err := s.store.InsertLog(ctx, &models.DebugLog{
		DeviceID:  models.NormalizeMAC(mac),
		Level:     level,
		Message:   message,
		Timestamp: at,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.LogAppended(entry)

	return entry, nil
}

// Measurements returns readings newest first. The limit defaults to 100 and
// is capped at 500.
func (s *Store) Measurements(ctx context.Context, q *models.MeasurementQuery) ([]models.Measurement, error) {
	query := *q
	query.DeviceID = models.NormalizeMAC(query.DeviceID)
	query.Limit = clampLimit(query.Limit, DefaultMeasurementLimit)

	return s.store.QueryMeasurements(ctx, &query)
}

// WeatherReadings returns temperature/humidity grouped into one sample per
// device and timestamp, newest first.
func (s *Store) WeatherReadings(ctx context.Context, mac string, limit int) ([]models.WeatherSample, error) {
	rows, err := s.store.QueryWeather(ctx, models.NormalizeMAC(mac), clampLimit(limit, DefaultWeatherLimit))
	if err != nil {
		return nil, err
	}

	return GroupWeather(rows), nil
}

// WeatherHistory returns every weather sample taken since the given time,
// oldest first. The window bounds the result, so no limit applies.
func (s *Store) WeatherHistory(ctx context.Context, mac string, since time.Time) ([]models.WeatherSample, error) {
	rows, err := s.store.QueryMeasurements(ctx, &models.MeasurementQuery{
		DeviceID:    models.NormalizeMAC(mac),
		Types:       []string{models.MeasurementTemperature, models.MeasurementHumidity},
		Since:       since,
		OldestFirst: true,
	})
	if err != nil {
		return nil, err
	}

	return GroupWeather(rows), nil
}

func (s *Store) Logs(ctx context.Context, mac string, limit int) ([]models.DebugLog, error) {
	return s.store.QueryLogs(ctx, models.NormalizeMAC(mac), clampLimit(limit, DefaultLogLimit))
}

func (s *Store) ClearLogs(ctx context.Context) (int64, error) {
	n, err := s.store.ClearLogs(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("removed", n).Msg("Cleared debug logs")

	return n, nil
}

func (s *Store) ClearMeasurements(ctx context.Context) (int64, error) {
	n, err := s.store.ClearMeasurements(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("removed", n).Msg("Cleared measurements")

	return n, nil
}

// CleanOldData applies the retention window once.
func (s *Store) CleanOldData(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}

	n, err := s.store.CleanOldData(ctx, s.retention)
	if err != nil {
		return err
	}

	if n > 0 {
		s.logger.Info().Int64("removed", n).Dur("retention", s.retention).Msg("Removed expired telemetry")
	}

	return nil
}

func (s *Store) Start(ctx context.Context) error {
	if s.cleaner != nil {
		s.cleaner.Start(ctx, s.CleanOldData)
	}

	return nil
}

func (s *Store) Stop(ctx context.Context) error {
	if s.cleaner != nil {
		s.cleaner.Stop(ctx)
	}

	return nil
}

func clampLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return limit
	}
}
