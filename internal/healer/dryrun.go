package healer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"blobmux/internal/core/storage/types"
)

// MutationRecorder counts the mutations a dry run would have issued.
type MutationRecorder struct {
	puts atomic.Int64
	adds atomic.Int64
	acks atomic.Int64
}

// Puts reports suppressed blob writes.
func (r *MutationRecorder) Puts() int64 { return r.puts.Load() }

// Adds reports suppressed queue appends.
func (r *MutationRecorder) Adds() int64 { return r.adds.Load() }

// Acks reports suppressed queue acknowledgements.
func (r *MutationRecorder) Acks() int64 { return r.acks.Load() }

// Total reports all suppressed mutations.
func (r *MutationRecorder) Total() int64 {
	return r.puts.Load() + r.adds.Load() + r.acks.Load()
}

// NewDryRunTopology wraps replicas and queue in observers that log and
// count every would-be mutation without performing it. Reads pass
// through, so reconciliation logic can be exercised against real state.
func NewDryRunTopology(replicas []types.Replica, queue types.SyncQueue, logger *slog.Logger) ([]types.Replica, types.SyncQueue, *MutationRecorder) {
	if logger == nil {
		logger = slog.Default()
	}
	rec := &MutationRecorder{}
	wrapped := make([]types.Replica, len(replicas))
	for i, r := range replicas {
		wrapped[i] = types.Replica{
			ID:    r.ID,
			Store: &observedStore{id: r.ID, inner: r.Store, rec: rec, logger: logger},
		}
	}
	return wrapped, &observedQueue{inner: queue, rec: rec, logger: logger}, rec
}

// observedStore delegates reads and suppresses writes.
type observedStore struct {
	id     types.StoreID
	inner  types.BackingStore
	rec    *MutationRecorder
	logger *slog.Logger
}

func (s *observedStore) Get(ctx context.Context, key string) (*types.BlobValue, error) {
	return s.inner.Get(ctx, key)
}

func (s *observedStore) Contains(ctx context.Context, key string) (bool, error) {
	return s.inner.Contains(ctx, key)
}

func (s *observedStore) Put(ctx context.Context, key string, value types.BlobValue) error {
	s.rec.puts.Add(1)
	s.logger.Info("dry run: would put", "store", s.id, "key", key)
	return nil
}

func (s *observedStore) PutExplicit(ctx context.Context, key string, value types.BlobValue, policy types.OverwritePolicy) (types.OverwriteStatus, error) {
	s.rec.puts.Add(1)
	s.logger.Info("dry run: would copy", "store", s.id, "key", key)
	return types.StatusWritten, nil
}

func (s *observedStore) Close(ctx context.Context) error {
	// Lifecycle of the wrapped store belongs to its owner.
	return nil
}

// observedQueue delegates reads and suppresses appends and
// acknowledgements.
type observedQueue struct {
	inner  types.SyncQueue
	rec    *MutationRecorder
	logger *slog.Logger
}

func (q *observedQueue) Add(ctx context.Context, entries []types.SyncQueueEntry) error {
	q.rec.adds.Add(int64(len(entries)))
	q.logger.Info("dry run: would append queue entries", "count", len(entries))
	return nil
}

func (q *observedQueue) Get(ctx context.Context, key string) ([]types.SyncQueueEntry, error) {
	return q.inner.Get(ctx, key)
}

func (q *observedQueue) FetchBatch(ctx context.Context, limit int) ([]types.SyncQueueEntry, error) {
	return q.inner.FetchBatch(ctx, limit)
}

func (q *observedQueue) Acknowledge(ctx context.Context, entries []types.SyncQueueEntry) error {
	q.rec.acks.Add(int64(len(entries)))
	q.logger.Info("dry run: would acknowledge queue entries", "count", len(entries))
	return nil
}

func (q *observedQueue) Close(ctx context.Context) error {
	return nil
}
