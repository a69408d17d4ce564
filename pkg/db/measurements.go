package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// queryBuilder helps construct SQL queries with parameters.
type queryBuilder struct {
	query string
	args  []interface{}
}

func newMeasurementQueryBuilder() *queryBuilder {
	return &queryBuilder{
		query: `
			SELECT m.id, m.device_mac, m.type, m.value, m.unit, m.timestamp, d.name, d.status
			FROM measurements m
			JOIN devices d ON d.mac = m.device_mac
			WHERE 1=1
		`,
		args: make([]interface{}, 0),
	}
}

func (qb *queryBuilder) addDeviceFilter(column, mac string) {
	if mac != "" {
		qb.query += " AND " + column + " = ?"
		qb.args = append(qb.args, mac)
	}
}

func (qb *queryBuilder) addTypeFilter(column string, types []string) {
	if len(types) == 0 {
		return
	}

	qb.query += " AND " + column + " IN (?" + strings.Repeat(", ?", len(types)-1) + ")"

	for _, t := range types {
		qb.args = append(qb.args, t)
	}
}

func (qb *queryBuilder) addSinceFilter(column string, since time.Time) {
	if !since.IsZero() {
		qb.query += " AND " + column + " >= ?"
		qb.args = append(qb.args, toNanos(since))
	}
}

func (qb *queryBuilder) finalize(orderBy string, limit int) (queryString string, queryArgs []interface{}) {
	qb.query += " ORDER BY " + orderBy

	if limit > 0 {
		qb.query += " LIMIT ?"
		qb.args = append(qb.args, limit)
	}

	return qb.query, qb.args
}

// InsertMeasurements appends readings for an existing device, all stamped
// with at, in one transaction.
func (db *DB) InsertMeasurements(
	ctx context.Context, mac string, readings []models.Reading, at time.Time) (_ []models.Measurement, err error) {
	if len(readings) == 0 {
		return nil, ErrEmptyMeasurements
	}

	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	defer func() { db.rollbackOnError(tx, err) }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO measurements (device_mac, type, value, unit, timestamp)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w measurement: %w", ErrFailedToInsert, err)
	}

	defer func() { _ = stmt.Close() }()

	at = at.UTC()
	stored := make([]models.Measurement, 0, len(readings))

	for _, r := range readings {
		result, execErr := stmt.ExecContext(ctx, mac, r.Type, r.Value, r.Unit, toNanos(at))
		if execErr != nil {
			err = execErr

			return nil, fmt.Errorf("%w measurement %s for %s: %w", ErrFailedToInsert, r.Type, mac, err)
		}

		id, idErr := result.LastInsertId()
		if idErr != nil {
			err = idErr

			return nil, fmt.Errorf("%w measurement id: %w", ErrFailedToInsert, err)
		}

		stored = append(stored, models.Measurement{
			ID:        id,
			DeviceID:  mac,
			Type:      r.Type,
			Value:     r.Value,
			Unit:      r.Unit,
			Timestamp: at,
		})
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToCommit, err)
	}

	return stored, nil
}

// QueryMeasurements returns measurements newest first, or oldest first when
// the query asks for it.
func (db *DB) QueryMeasurements(ctx context.Context, q *models.MeasurementQuery) ([]models.Measurement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	order := "m.timestamp DESC, m.id DESC"
	if q.OldestFirst {
		order = "m.timestamp ASC, m.id ASC"
	}

	qb := newMeasurementQueryBuilder()
	qb.addDeviceFilter("m.device_mac", q.DeviceID)
	qb.addTypeFilter("m.type", q.Types)
	qb.addSinceFilter("m.timestamp", q.Since)
	query, args := qb.finalize(order, q.Limit)

	return db.queryMeasurements(ctx, query, args...)
}

// QueryWeather returns the temperature and humidity rows of the latest limit
// distinct (device, timestamp) samples, newest first.
func (db *DB) QueryWeather(ctx context.Context, mac string, limit int) ([]models.Measurement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	weatherTypes := []string{models.MeasurementTemperature, models.MeasurementHumidity}

	samples := &queryBuilder{
		query: `SELECT DISTINCT device_mac, timestamp FROM measurements WHERE 1=1`,
		args:  make([]interface{}, 0),
	}
	samples.addDeviceFilter("device_mac", mac)
	samples.addTypeFilter("type", weatherTypes)
	sampleQuery, sampleArgs := samples.finalize("timestamp DESC, device_mac", limit)

	qb := newMeasurementQueryBuilder()
	qb.query = strings.Replace(qb.query, "WHERE 1=1", `
		JOIN (`+sampleQuery+`) s ON s.device_mac = m.device_mac AND s.timestamp = m.timestamp
		WHERE 1=1`, 1)
	qb.args = append(qb.args, sampleArgs...)
	qb.addTypeFilter("m.type", weatherTypes)
	query, args := qb.finalize("m.timestamp DESC, m.device_mac, m.id", 0)

	return db.queryMeasurements(ctx, query, args...)
}

// ClearMeasurements deletes every measurement and reports how many were
// removed.
func (db *DB) ClearMeasurements(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	result, err := db.ExecContext(ctx, `DELETE FROM measurements`)
	if err != nil {
		return 0, fmt.Errorf("%w measurements: %w", ErrFailedToDelete, err)
	}

	return result.RowsAffected()
}

func (db *DB) CountMeasurements(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w measurement count: %w", ErrFailedToQuery, err)
	}

	return n, nil
}

func (db *DB) queryMeasurements(ctx context.Context, query string, args ...interface{}) ([]models.Measurement, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w measurements: %w", ErrFailedToQuery, err)
	}
	defer db.closeRows(rows)

	measurements := make([]models.Measurement, 0)

	for rows.Next() {
		var (
			m      models.Measurement
			ref    models.DeviceRef
			status string
			ts     int64
		)

		if err := rows.Scan(&m.ID, &m.DeviceID, &m.Type, &m.Value, &m.Unit, &ts, &ref.Name, &status); err != nil {
			return nil, fmt.Errorf("%w measurement row: %w", ErrFailedToScan, err)
		}

		ref.MAC = m.DeviceID
		ref.Status = models.DeviceStatus(status)
		m.Timestamp = fromNanos(ts)
		m.Device = &ref

		measurements = append(measurements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w measurements: %w", ErrFailedToQuery, err)
	}

	return measurements, nil
}
