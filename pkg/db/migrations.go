package db

import (
	"context"
	"fmt"
)

// addedDeviceColumns are devices columns that databases created by earlier
// releases lack.
var addedDeviceColumns = []struct {
	name, def string
}{
	{"latitude", "REAL"},
	{"longitude", "REAL"},
}

// migrateSchema brings an existing database up to the current schema.
func (db *DB) migrateSchema(ctx context.Context) error {
	for _, col := range addedDeviceColumns {
		var exists bool

		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) > 0 FROM pragma_table_info('devices') WHERE name = ?`, col.name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to inspect devices.%s: %w", col.name, err)
		}

		if exists {
			continue
		}

		db.logger.Info().Str("column", col.name).Msg("Running migration: adding devices column")

		if _, err := db.ExecContext(ctx, `ALTER TABLE devices ADD COLUMN `+col.name+` `+col.def); err != nil {
			return fmt.Errorf("failed to add devices.%s: %w", col.name, err)
		}
	}

	return nil
}
