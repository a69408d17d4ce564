package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// UpsertDevice records a liveness-bearing signal in one statement. last_seen
// never moves backwards, optional fields keep their stored value when the
// signal omits them, and a signal without a status implies ONLINE.
func (db *DB) UpsertDevice(ctx context.Context, signal *models.DeviceSignal) (*models.Device, error) {
	if signal == nil || signal.MAC == "" {
		return nil, ErrInvalidSignal
	}

	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	status := models.StatusOnline
	if signal.Status != nil {
		status = *signal.Status
	}

	name := signal.DefaultName
	if name == "" {
		name = models.DefaultDeviceName(signal.MAC)
	}

	if signal.Name != nil && *signal.Name != "" {
		name = *signal.Name
	}

	version := ""
	if signal.Version != nil {
		version = *signal.Version
	}

	health := models.HealthUnknown
	if signal.Health != nil {
		health = *signal.Health
	}

	seen := signal.SeenAt
	if seen.IsZero() {
		seen = db.now()
	}

	now := toNanos(db.now())

	var updateName sql.NullString
	if signal.Name != nil && *signal.Name != "" {
		updateName = nullString(signal.Name)
	}

	query := `
		INSERT INTO devices (mac, name, version, status, health, latitude, longitude,
			last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mac) DO UPDATE SET
			name = COALESCE(?, devices.name),
			version = COALESCE(?, devices.version),
			status = excluded.status,
			health = COALESCE(?, devices.health),
			latitude = COALESCE(excluded.latitude, devices.latitude),
			longitude = COALESCE(excluded.longitude, devices.longitude),
			last_seen = max(devices.last_seen, excluded.last_seen),
			updated_at = excluded.updated_at
		` + deviceReturning

	device, err := scanDevice(db.QueryRowContext(ctx, query,
		signal.MAC, name, version, string(status), string(health),
		nullFloat(signal.Latitude), nullFloat(signal.Longitude), toNanos(seen), now, now,
		updateName, nullString(signal.Version), nullHealth(signal.Health),
	))
	if err != nil {
		return nil, fmt.Errorf("%w device %s: %w", ErrFailedToInsert, signal.MAC, err)
	}

	return device, nil
}

// TouchDevice refreshes last_seen of an existing device. An OFFLINE device
// comes back ONLINE; other statuses are left alone.
func (db *DB) TouchDevice(ctx context.Context, mac string, seenAt time.Time) (*models.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `
		UPDATE devices SET
			last_seen = max(last_seen, ?),
			status = CASE WHEN status = 'OFFLINE' THEN 'ONLINE' ELSE status END,
			updated_at = ?
		WHERE mac = ?
		` + deviceReturning

	device, err := scanDevice(db.QueryRowContext(ctx, query, toNanos(seenAt), toNanos(db.now()), mac))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, mac)
	}

	if err != nil {
		return nil, fmt.Errorf("%w device %s: %w", ErrFailedToUpdate, mac, err)
	}

	return device, nil
}

func (db *DB) GetDevice(ctx context.Context, mac string) (*models.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `SELECT ` + deviceColumns + ` FROM devices d WHERE d.mac = ?`

	device, err := scanDevice(db.QueryRowContext(ctx, query, mac))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, mac)
	}

	if err != nil {
		return nil, fmt.Errorf("%w device %s: %w", ErrFailedToQuery, mac, err)
	}

	return device, nil
}

// ListDevices returns every device, most recently seen first, with its child
// row counts.
func (db *DB) ListDevices(ctx context.Context) ([]models.DeviceSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `
		SELECT ` + deviceColumns + `,
			(SELECT COUNT(*) FROM debug_logs l WHERE l.device_mac = d.mac),
			(SELECT COUNT(*) FROM measurements m WHERE m.device_mac = d.mac)
		FROM devices d
		ORDER BY d.last_seen DESC, d.mac`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w devices: %w", ErrFailedToQuery, err)
	}
	defer db.closeRows(rows)

	devices := make([]models.DeviceSummary, 0)

	for rows.Next() {
		var counts models.DeviceCounts

		device, err := scanDevice(rows, &counts.DebugLogs, &counts.Measurements)
		if err != nil {
			return nil, fmt.Errorf("%w device row: %w", ErrFailedToScan, err)
		}

		devices = append(devices, models.DeviceSummary{Device: *device, Count: counts})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w devices: %w", ErrFailedToQuery, err)
	}

	return devices, nil
}

func (db *DB) ListDevicesByStatus(ctx context.Context, status models.DeviceStatus) ([]models.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `SELECT ` + deviceColumns + ` FROM devices d WHERE d.status = ? ORDER BY d.mac`

	rows, err := db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w devices by status: %w", ErrFailedToQuery, err)
	}
	defer db.closeRows(rows)

	return db.collectDevices(rows)
}

// UpdateDevice applies an operator edit. It does not count as a liveness
// signal, so last_seen is unchanged.
func (db *DB) UpdateDevice(ctx context.Context, mac string, edit *models.DeviceEdit) (*models.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `
		UPDATE devices SET
			name = COALESCE(?, name),
			status = COALESCE(?, status),
			updated_at = ?
		WHERE mac = ?
		` + deviceReturning

	device, err := scanDevice(db.QueryRowContext(ctx, query,
		nullString(edit.Name), nullStatus(edit.Status), toNanos(db.now()), mac))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, mac)
	}

	if err != nil {
		return nil, fmt.Errorf("%w device %s: %w", ErrFailedToUpdate, mac, err)
	}

	return device, nil
}

func (db *DB) SetDeviceStatus(ctx context.Context, mac string, status models.DeviceStatus) (*models.Device, error) {
	return db.UpdateDevice(ctx, mac, &models.DeviceEdit{Status: &status})
}

// MarkOffline transitions one device to OFFLINE. changed is false when the
// device was already offline or does not exist.
func (db *DB) MarkOffline(ctx context.Context, mac string) (*models.Device, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `
		UPDATE devices SET status = 'OFFLINE', updated_at = ?
		WHERE mac = ? AND status <> 'OFFLINE'
		` + deviceReturning

	device, err := scanDevice(db.QueryRowContext(ctx, query, toNanos(db.now()), mac))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("%w device %s: %w", ErrFailedToUpdate, mac, err)
	}

	return device, true, nil
}

// MarkStaleOffline transitions every non-OFFLINE device whose last_seen is
// before cutoff and returns the devices that changed. The check and the
// write are one statement, so a signal landing concurrently either beats
// it or is applied after it.
func (db *DB) MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]models.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	query := `
		UPDATE devices SET status = 'OFFLINE', updated_at = ?
		WHERE last_seen < ? AND status <> 'OFFLINE'
		` + deviceReturning

	rows, err := db.QueryContext(ctx, query, toNanos(db.now()), toNanos(cutoff))
	if err != nil {
		return nil, fmt.Errorf("%w stale devices: %w", ErrFailedToUpdate, err)
	}
	defer db.closeRows(rows)

	return db.collectDevices(rows)
}

// DeleteDevice removes a device with all of its measurements and logs in
// one transaction.
func (db *DB) DeleteDevice(ctx context.Context, mac string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	defer func() { db.rollbackOnError(tx, err) }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM measurements WHERE device_mac = ?`, mac); err != nil {
		return fmt.Errorf("%w measurements of %s: %w", ErrFailedToDelete, mac, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM debug_logs WHERE device_mac = ?`, mac); err != nil {
		return fmt.Errorf("%w logs of %s: %w", ErrFailedToDelete, mac, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE mac = ?`, mac)
	if err != nil {
		return fmt.Errorf("%w device %s: %w", ErrFailedToDelete, mac, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w device %s: %w", ErrFailedToDelete, mac, err)
	}

	if affected == 0 {
		err = fmt.Errorf("%w: %s", ErrDeviceNotFound, mac)

		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToCommit, err)
	}

	return nil
}

func (db *DB) CountDevicesByStatus(ctx context.Context) (map[models.DeviceStatus]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM devices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w device counts: %w", ErrFailedToQuery, err)
	}
	defer db.closeRows(rows)

	counts := make(map[models.DeviceStatus]int)

	for rows.Next() {
		var (
			status string
			n      int
		)

		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w device count: %w", ErrFailedToScan, err)
		}

		counts[models.DeviceStatus(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w device counts: %w", ErrFailedToQuery, err)
	}

	return counts, nil
}

func (*DB) collectDevices(rows *sql.Rows) ([]models.Device, error) {
	devices := make([]models.Device, 0)

	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w device row: %w", ErrFailedToScan, err)
		}

		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w devices: %w", ErrFailedToQuery, err)
	}

	return devices, nil
}
