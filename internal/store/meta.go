package store

import (
	"context"
	"database/sql"
	"errors"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// GetMeta reads one metadata value. ok is false when the key is absent.
func (s *Store) GetMeta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dmerrors.StoreError("failed to read metadata "+key, err)
	}
	return value, true, nil
}

// SetMeta writes one metadata value, replacing any previous one.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return dmerrors.StoreError("failed to write metadata "+key, err)
	}
	return nil
}

// SetMetadata writes several values in one transaction.
func (s *Store) SetMetadata(ctx context.Context, values map[string]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for k, v := range values {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO metadata (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
			if err != nil {
				return dmerrors.StoreError("failed to write metadata "+k, err)
			}
		}
		return nil
	})
}

// Metadata returns all metadata entries.
func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, dmerrors.StoreError("failed to read metadata", err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, dmerrors.StoreError("failed to scan metadata", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, dmerrors.StoreError("failed to read metadata", err)
	}
	return meta, nil
}
