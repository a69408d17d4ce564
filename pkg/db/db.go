// Package db pkg/db/db.go provides SQLite persistence for the firmwave fleet.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mfreeman451/firmwave/pkg/logger"
)

const (
	dbOperationTimeout = 5 * time.Second

	// SQL statements for database initialization. Timestamps are stored as
	// UTC Unix nanoseconds.
	createTablesSQL = `
	CREATE TABLE IF NOT EXISTS devices (
		mac TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ONLINE',
		health TEXT NOT NULL DEFAULT 'UNKNOWN',
		latitude REAL,
		longitude REAL,
		last_seen INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_mac TEXT NOT NULL,
		type TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (device_mac) REFERENCES devices(mac) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS debug_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_mac TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (device_mac) REFERENCES devices(mac) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS firmware (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		version TEXT NOT NULL,
		size INTEGER NOT NULL,
		path TEXT NOT NULL,
		url TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_devices_last_seen
		ON devices(last_seen);
	CREATE INDEX IF NOT EXISTS idx_devices_status
		ON devices(status);
	CREATE INDEX IF NOT EXISTS idx_measurements_device_time
		ON measurements(device_mac, timestamp);
	CREATE INDEX IF NOT EXISTS idx_measurements_type_time
		ON measurements(type, timestamp);
	CREATE INDEX IF NOT EXISTS idx_debug_logs_device_time
		ON debug_logs(device_mac, timestamp);
	CREATE INDEX IF NOT EXISTS idx_firmware_uploaded
		ON firmware(uploaded_at);
	`

	deviceColumns = `d.mac, d.name, d.version, d.status, d.health, d.latitude, d.longitude,
		d.last_seen, d.created_at, d.updated_at`
	deviceReturning = `RETURNING mac, name, version, status, health, latitude, longitude,
		last_seen, created_at, updated_at`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
	logger logger.Logger
	now    func() time.Time
}

// New opens (creating if needed) the SQLite database at dbPath and
// initializes the schema.
func New(ctx context.Context, dbPath string, log logger.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	db := &DB{
		DB:     sqlDB,
		logger: log.WithComponent("db"),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := db.initSchema(ctx); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// dsn enables WAL, foreign keys and a busy timeout on every pooled
// connection, and takes the write lock at BEGIN.
func dsn(path string) string {
	const params = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

	if strings.Contains(path, "?") {
		return path + "&" + params
	}

	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	return path + "?" + params
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, createTablesSQL); err != nil {
		return err
	}

	return db.migrateSchema(ctx)
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	return db.PingContext(ctx)
}

func (db *DB) rollbackOnError(tx *sql.Tx, err error) {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("Error rolling back transaction")
		}
	}
}

func (db *DB) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		db.logger.Error().Err(err).Msg("failed to close rows")
	}
}
