package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"blobmux/internal/core/storage/types"
)

type syncQueue struct {
	db *sql.DB
}

// NewSyncQueue creates a PostgreSQL-backed SyncQueue. The relational
// backing gives the queue the atomic append/remove semantics the
// concurrent-caller contract requires without in-process locking.
func NewSyncQueue(db *sql.DB) types.SyncQueue {
	return &syncQueue{db: db}
}

// EnsureSyncQueueSchema creates the sync_queue table and indexes if
// they don't exist. Pending entries are unique per (store, key) pair:
// re-appending an already-pending pair is a no-op, which is what makes
// Add idempotent.
func EnsureSyncQueueSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sync_queue (
    id          TEXT PRIMARY KEY,
    store_id    TEXT NOT NULL,
    blob_key    TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (store_id, blob_key)
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_key ON sync_queue(blob_key);
CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue(created_at);
`
	_, err := db.Exec(schema)
	return err
}

func (q *syncQueue) Add(ctx context.Context, entries []types.SyncQueueEntry) error {
	for _, e := range entries {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO sync_queue (id, store_id, blob_key, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (store_id, blob_key) DO NOTHING
		`, e.ID, e.StoreID, e.Key, e.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (q *syncQueue) Get(ctx context.Context, key string) ([]types.SyncQueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, store_id, blob_key, created_at
		FROM sync_queue
		WHERE blob_key = $1
		ORDER BY created_at ASC, id ASC
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (q *syncQueue) FetchBatch(ctx context.Context, limit int) ([]types.SyncQueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, store_id, blob_key, created_at
		FROM sync_queue
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (q *syncQueue) Acknowledge(ctx context.Context, entries []types.SyncQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

func (q *syncQueue) Close(ctx context.Context) error {
	return nil
}

func scanEntries(rows *sql.Rows) ([]types.SyncQueueEntry, error) {
	var entries []types.SyncQueueEntry
	for rows.Next() {
		var e types.SyncQueueEntry
		if err := rows.Scan(&e.ID, &e.StoreID, &e.Key, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
