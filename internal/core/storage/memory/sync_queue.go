package memory

import (
	"context"
	"sort"
	"sync"

	"blobmux/internal/core/storage/types"
)

// SyncQueue is an in-memory SyncQueue. Pending entries are unique per
// (store, key) pair, matching the relational implementation.
type SyncQueue struct {
	mu      sync.Mutex
	entries map[pairKey]types.SyncQueueEntry
}

type pairKey struct {
	store types.StoreID
	key   string
}

// NewSyncQueue creates an empty in-memory sync queue.
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{
		entries: make(map[pairKey]types.SyncQueueEntry),
	}
}

func (q *SyncQueue) Add(ctx context.Context, entries []types.SyncQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		pk := pairKey{store: e.StoreID, key: e.Key}
		if _, exists := q.entries[pk]; exists {
			continue
		}
		q.entries[pk] = e
	}
	return nil
}

func (q *SyncQueue) Get(ctx context.Context, key string) ([]types.SyncQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []types.SyncQueueEntry
	for pk, e := range q.entries {
		if pk.key == key {
			out = append(out, e)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (q *SyncQueue) FetchBatch(ctx context.Context, limit int) ([]types.SyncQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]types.SyncQueueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e)
	}
	sortOldestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *SyncQueue) Acknowledge(ctx context.Context, entries []types.SyncQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		pk := pairKey{store: e.StoreID, key: e.Key}
		if existing, ok := q.entries[pk]; ok && existing.ID == e.ID {
			delete(q.entries, pk)
		}
	}
	return nil
}

func (q *SyncQueue) Close(ctx context.Context) error {
	return nil
}

// Len reports the number of pending entries.
func (q *SyncQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func sortOldestFirst(entries []types.SyncQueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
