package db

import (
	"context"
	"fmt"
	"time"
)

// CleanOldData removes measurements and debug logs older than the retention
// period. Devices and firmware are never aged out.
func (db *DB) CleanOldData(ctx context.Context, retentionPeriod time.Duration) (removed int64, err error) {
	cutoff := toNanos(db.now().Add(-retentionPeriod))

	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	defer func() { db.rollbackOnError(tx, err) }()

	for _, table := range []string{"measurements", "debug_logs"} {
		result, execErr := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
		if execErr != nil {
			err = execErr

			return 0, fmt.Errorf("%w %s: %w", ErrFailedToClean, table, err)
		}

		n, _ := result.RowsAffected()
		removed += n
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedToCommit, err)
	}

	return removed, nil
}
