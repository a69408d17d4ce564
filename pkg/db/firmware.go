package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mfreeman451/firmwave/pkg/models"
)

const firmwareColumns = `id, filename, version, size, path, url, uploaded_at`

func (db *DB) InsertFirmware(ctx context.Context, fw *models.Firmware) error {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO firmware (`+firmwareColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fw.ID, fw.Filename, fw.Version, fw.Size, fw.Path, fw.URL, toNanos(fw.UploadedAt))
	if err != nil {
		return fmt.Errorf("%w firmware %s: %w", ErrFailedToInsert, fw.ID, err)
	}

	return nil
}

func (db *DB) GetFirmware(ctx context.Context, id string) (*models.Firmware, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	fw, err := scanFirmware(db.QueryRowContext(ctx,
		`SELECT `+firmwareColumns+` FROM firmware WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFirmwareNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w firmware %s: %w", ErrFailedToQuery, id, err)
	}

	return fw, nil
}

// ListFirmware returns every artifact, newest upload first.
func (db *DB) ListFirmware(ctx context.Context) ([]models.Firmware, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx,
		`SELECT `+firmwareColumns+` FROM firmware ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("%w firmware: %w", ErrFailedToQuery, err)
	}
	defer db.closeRows(rows)

	list := make([]models.Firmware, 0)

	for rows.Next() {
		fw, err := scanFirmware(rows)
		if err != nil {
			return nil, fmt.Errorf("%w firmware row: %w", ErrFailedToScan, err)
		}

		list = append(list, *fw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w firmware: %w", ErrFailedToQuery, err)
	}

	return list, nil
}

func scanFirmware(row rowScanner) (*models.Firmware, error) {
	var (
		fw       models.Firmware
		uploaded int64
	)

	if err := row.Scan(&fw.ID, &fw.Filename, &fw.Version, &fw.Size, &fw.Path, &fw.URL, &uploaded); err != nil {
		return nil, err
	}

	fw.UploadedAt = fromNanos(uploaded)

	return &fw, nil
}
