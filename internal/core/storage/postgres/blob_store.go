// Package postgres implements the backing store and sync queue
// contracts on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blobmux/internal/core/storage/types"
)

type blobStore struct {
	db *sql.DB
}

// NewBlobStore creates a PostgreSQL-backed BackingStore.
func NewBlobStore(db *sql.DB) types.BackingStore {
	return &blobStore{db: db}
}

// EnsureBlobSchema creates the blobs table if it doesn't exist.
func EnsureBlobSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS blobs (
    blob_key    TEXT PRIMARY KEY,
    content     BYTEA NOT NULL,
    checksum    TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := db.Exec(schema)
	return err
}

func (s *blobStore) Get(ctx context.Context, key string) (*types.BlobValue, error) {
	var value types.BlobValue
	err := s.db.QueryRowContext(ctx, `
		SELECT content, checksum, created_at FROM blobs WHERE blob_key = $1
	`, key).Scan(&value.Content, &value.Checksum, &value.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrBlobNotFound
		}
		return nil, err
	}
	return &value, nil
}

func (s *blobStore) Put(ctx context.Context, key string, value types.BlobValue) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (blob_key, content, checksum, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (blob_key) DO NOTHING
	`, key, value.Content, value.Checksum, value.CreatedAt)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		var existing string
		if err := s.db.QueryRowContext(ctx,
			`SELECT checksum FROM blobs WHERE blob_key = $1`, key).Scan(&existing); err != nil {
			return err
		}
		if existing != value.Checksum {
			return fmt.Errorf("key %q already holds different content", key)
		}
	}
	return nil
}

func (s *blobStore) PutExplicit(ctx context.Context, key string, value types.BlobValue, policy types.OverwritePolicy) (types.OverwriteStatus, error) {
	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT checksum FROM blobs WHERE blob_key = $1`, key).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, ierr := s.db.ExecContext(ctx, `
			INSERT INTO blobs (blob_key, content, checksum, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (blob_key) DO NOTHING
		`, key, value.Content, value.Checksum, value.CreatedAt); ierr != nil {
			return types.StatusSkipped, ierr
		}
		return types.StatusWritten, nil
	case err != nil:
		return types.StatusSkipped, err
	}

	if existing == value.Checksum {
		return types.StatusIdentical, nil
	}
	if policy == types.OverwriteIfMissing {
		return types.StatusSkipped, nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO blobs (blob_key, content, checksum, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (blob_key) DO UPDATE
		SET content = EXCLUDED.content,
		    checksum = EXCLUDED.checksum,
		    created_at = EXCLUDED.created_at
	`, key, value.Content, value.Checksum, value.CreatedAt)
	if err != nil {
		return types.StatusSkipped, err
	}
	return types.StatusReplaced, nil
}

func (s *blobStore) Contains(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blobs WHERE blob_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *blobStore) Close(ctx context.Context) error {
	// The *sql.DB is shared; the factory owns its lifecycle.
	return nil
}
