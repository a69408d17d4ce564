package db

import (
	"context"
	"fmt"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// InsertLog appends one debug log line for an existing device.
func (db *DB) InsertLog(ctx context.Context, entry *models.DebugLog) (*models.DebugLog, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	stored := *entry
	if stored.Timestamp.IsZero() {
		stored.Timestamp = db.now()
	}

	stored.Timestamp = stored.Timestamp.UTC()

	result, err := db.ExecContext(ctx, `
		INSERT INTO debug_logs (device_mac, level, message, timestamp)
		VALUES (?, ?, ?, ?)`,
		stored.DeviceID, string(stored.Level), stored.Message, toNanos(stored.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("%w debug log for %s: %w", ErrFailedToInsert, stored.DeviceID, err)
	}

	if stored.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("%w debug log id: %w", ErrFailedToInsert, err)
	}

	return &stored, nil
}

// QueryLogs returns debug logs newest first, optionally for one device.
func (db *DB) QueryLogs(ctx context.Context, mac string, limit int) ([]models.DebugLog, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	qb := &queryBuilder{
		query: `
			SELECT l.id, l.device_mac, l.level, l.message, l.timestamp, d.name, d.status
			FROM debug_logs l
			JOIN devices d ON d.mac = l.device_mac
			WHERE 1=1
		`,
		args: make([]interface{}, 0),
	}
	qb.addDeviceFilter("l.device_mac", mac)
	query, args := qb.finalize("l.timestamp DESC, l.id DESC", limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w debug logs: %w", ErrFailedToQuery, err)
	}
	defer db.closeRows(rows)

	logs := make([]models.DebugLog, 0)

	for rows.Next() {
		var (
			l             models.DebugLog
			ref           models.DeviceRef
			level, status string
			ts            int64
		)

		if err := rows.Scan(&l.ID, &l.DeviceID, &level, &l.Message, &ts, &ref.Name, &status); err != nil {
			return nil, fmt.Errorf("%w debug log row: %w", ErrFailedToScan, err)
		}

		l.Level = models.LogLevel(level)
		l.Timestamp = fromNanos(ts)
		ref.MAC = l.DeviceID
		ref.Status = models.DeviceStatus(status)
		l.Device = &ref

		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w debug logs: %w", ErrFailedToQuery, err)
	}

	return logs, nil
}

// ClearLogs deletes every debug log and reports how many were removed.
func (db *DB) ClearLogs(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	result, err := db.ExecContext(ctx, `DELETE FROM debug_logs`)
	if err != nil {
		return 0, fmt.Errorf("%w debug logs: %w", ErrFailedToDelete, err)
	}

	return result.RowsAffected()
}
