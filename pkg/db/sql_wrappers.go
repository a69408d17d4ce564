// Package db pkg/db/sql_wrappers.go converts between model values and the
// column encodings used by the schema: Unix-nanosecond timestamps and
// nullable text for optional signal fields.
package db

import (
	"database/sql"
	"time"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func nullStatus(s *models.DeviceStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: string(*s), Valid: true}
}

func nullHealth(h *models.Health) sql.NullString {
	if h == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: string(*h), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}

	v := f.Float64

	return &v
}

func scanDevice(row rowScanner, extra ...interface{}) (*models.Device, error) {
	var (
		d                          models.Device
		status, health             string
		lat, lon                   sql.NullFloat64
		lastSeen, created, updated int64
	)

	dest := append([]interface{}{
		&d.MAC, &d.Name, &d.Version, &status, &health, &lat, &lon, &lastSeen, &created, &updated,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	d.Status = models.DeviceStatus(status)
	d.Health = models.Health(health)
	d.Latitude = floatPtr(lat)
	d.Longitude = floatPtr(lon)
	d.LastSeen = fromNanos(lastSeen)
	d.CreatedAt = fromNanos(created)
	d.UpdatedAt = fromNanos(updated)

	return &d, nil
}
