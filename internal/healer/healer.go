// Package healer implements the background process that drains the
// sync-queue backlog: it reads divergent keys directly from the
// backing stores, copies data to lagging replicas, and acknowledges
// entries once the pair is verified consistent.
package healer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"blobmux/internal/core/storage/types"
	"blobmux/internal/ratelimit"
)

// errNoSource marks a key no store currently holds. Its entries stay
// queued: likely a write that never completed anywhere, which nothing
// can reconcile. Surfaced via the pass stats, never auto-purged.
var errNoSource = errors.New("no store holds the value")

// PassStats summarizes one reconcile pass.
type PassStats struct {
	Entries    int // queue entries fetched
	Keys       int // distinct keys in the batch
	Reconciled int // keys verified consistent and acknowledged
	Copies     int // values copied to lagging stores
	Stuck      int // keys held by no store
	Failures   int // keys that hit errors and stay queued
}

// PassFunc observes completed passes. Used to feed heal events to
// operational tooling.
type PassFunc func(ctx context.Context, stats PassStats)

// Healer reconciles the sync-queue backlog. Reads go directly against
// the backing stores rather than through the multiplexed or scrub
// layers, so reconciliation never triggers re-entrant repair logic.
type Healer struct {
	replicas []types.Replica
	byID     map[types.StoreID]types.BackingStore
	queue    types.SyncQueue
	limiter  ratelimit.Limiter
	cfg      Config
	logger   *slog.Logger
	onPass   PassFunc
}

// New creates a healer over the given topology.
func New(replicas []types.Replica, queue types.SyncQueue, limiter ratelimit.Limiter, cfg Config, logger *slog.Logger) *Healer {
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[types.StoreID]types.BackingStore, len(replicas))
	for _, r := range replicas {
		byID[r.ID] = r.Store
	}
	return &Healer{
		replicas: replicas,
		byID:     byID,
		queue:    queue,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

// OnPass registers an observer called after every completed pass.
func (h *Healer) OnPass(fn PassFunc) {
	h.onPass = fn
}

// Run executes the reconcile loop until ctx is cancelled. In dry-run
// mode it performs exactly one pass and returns. Pass-level failures
// (e.g. the queue's backing storage being briefly unreachable) are
// logged and retried after the iteration delay; they are not fatal.
func (h *Healer) Run(ctx context.Context) error {
	for {
		stats, err := h.pass(ctx)
		switch {
		case ctx.Err() != nil:
			// Shutdown requested; partial progress is safe because
			// acknowledgement is explicit and per-key.
			return nil
		case err != nil:
			h.logger.Error("heal pass failed", "err", err)
		default:
			h.logger.Info("heal pass completed",
				"entries", stats.Entries,
				"keys", stats.Keys,
				"reconciled", stats.Reconciled,
				"copies", stats.Copies,
				"stuck", stats.Stuck,
				"failures", stats.Failures,
			)
			if h.onPass != nil {
				h.onPass(ctx, stats)
			}
		}

		if h.cfg.DryRun {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(h.cfg.MinInterval):
		}
	}
}

func (h *Healer) pass(ctx context.Context) (PassStats, error) {
	var stats PassStats

	entries, err := h.queue.FetchBatch(ctx, h.cfg.QueueLimit)
	if err != nil {
		return stats, fmt.Errorf("fetch sync queue batch: %w", err)
	}
	stats.Entries = len(entries)
	if len(entries) == 0 {
		return stats, nil
	}

	byKey := make(map[string][]types.SyncQueueEntry)
	for _, e := range entries {
		byKey[e.Key] = append(byKey[e.Key], e)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	stats.Keys = len(keys)

	for _, key := range keys {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		err := h.reconcileKey(ctx, key, byKey[key], &stats)
		switch {
		case err == nil:
			stats.Reconciled++
		case errors.Is(err, errNoSource):
			stats.Stuck++
			h.logger.Warn("key held by no store, entries left queued", "key", key)
		case ctx.Err() != nil:
			return stats, ctx.Err()
		default:
			stats.Failures++
			h.logger.Warn("key reconciliation failed", "key", key, "err", err)
		}
	}

	return stats, nil
}

// reconcileKey copies key's value to every store its entries name,
// then acknowledges the entries whose stores were confirmed. Stores
// that fail keep their entries for the next pass.
func (h *Healer) reconcileKey(ctx context.Context, key string, entries []types.SyncQueueEntry, stats *PassStats) error {
	value, err := h.findSource(ctx, key)
	if err != nil {
		return err
	}

	var confirmed []types.SyncQueueEntry
	var failures []error
	for _, e := range entries {
		target, ok := h.byID[e.StoreID]
		if !ok {
			failures = append(failures, fmt.Errorf("store %s not in topology", e.StoreID))
			continue
		}

		if err := h.limiter.Acquire(ctx); err != nil {
			return err
		}

		status, err := target.PutExplicit(ctx, key, *value, types.OverwriteIfMissing)
		if err != nil {
			failures = append(failures, &types.BackendError{StoreID: e.StoreID, Err: err})
			continue
		}
		if status == types.StatusSkipped {
			// The store holds different content under this key. Not
			// ours to resolve; leave the entry and flag it.
			failures = append(failures, fmt.Errorf("store %s holds conflicting content for %q", e.StoreID, key))
			continue
		}
		if status == types.StatusWritten {
			stats.Copies++
		}
		confirmed = append(confirmed, e)
	}

	if len(confirmed) > 0 {
		if err := h.queue.Acknowledge(ctx, confirmed); err != nil {
			return fmt.Errorf("acknowledge %d entries for %q: %w", len(confirmed), key, err)
		}
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}

// findSource returns the value from the first store holding it,
// reading replicas in topology order.
func (h *Healer) findSource(ctx context.Context, key string) (*types.BlobValue, error) {
	var causes []error
	for _, r := range h.replicas {
		v, err := r.Store.Get(ctx, key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, types.ErrBlobNotFound) {
			causes = append(causes, &types.BackendError{StoreID: r.ID, Err: err})
		}
	}
	if len(causes) > 0 {
		return nil, fmt.Errorf("locating source for %q: %w", key, errors.Join(causes...))
	}
	return nil, errNoSource
}
