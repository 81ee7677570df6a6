// Package mux implements the multiplexing layer: one logical blob
// operation fanned out to every backing store in the topology, with the
// combined result classified into a small typed outcome set.
//
// The classification is returned as-is to callers. Ambiguity is never
// collapsed here; only the scrub layer knows the applicable
// repair/report policy and may do that.
package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"blobmux/internal/core/storage/types"
)

// Store fans gets and puts out to all backing stores concurrently.
// Writes are covered by write-ahead sync-queue entries: one entry per
// store is appended before the fan-out starts, so a crash mid-write
// always leaves the key covered. Entries are cleared by the healer,
// never here, to keep detection and reconciliation decoupled.
type Store struct {
	replicas []types.Replica
	queue    types.SyncQueue
	tel      *Telemetry
	logger   *slog.Logger
	newID    func() string
}

// NewStore creates a multiplexed store over replicas. The telemetry
// source is shared with the scrub layer wrapping this store.
func NewStore(replicas []types.Replica, queue types.SyncQueue, tel *Telemetry, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		replicas: replicas,
		queue:    queue,
		tel:      tel,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Replicas returns the topology this store fans out to.
func (s *Store) Replicas() []types.Replica {
	return s.replicas
}

// Queue returns the sync queue backing this topology.
func (s *Store) Queue() types.SyncQueue {
	return s.queue
}

// branch is one store's answer within a fan-out. Exactly one of value,
// absent and err is set: a nil-error get with a value, a definitive
// "no value", or a backend failure.
type branch struct {
	id     types.StoreID
	value  *types.BlobValue
	absent bool
	err    error
}

// Put appends a sync-queue entry for every store, then issues the put
// to all stores concurrently. It succeeds once at least one store
// acknowledges; stores that failed stay covered by their queue entries
// for the healer to reconcile.
func (s *Store) Put(ctx context.Context, key string, value types.BlobValue) error {
	op := s.tel.NextOp()
	sampled := s.tel.Sampled()

	entries := types.NewEntries(s.replicas, key, s.newID)
	if err := s.queue.Add(ctx, entries); err != nil {
		return fmt.Errorf("write-ahead queue append for %q: %w", key, err)
	}

	failures := make([]error, len(s.replicas))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range s.replicas {
		g.Go(func() error {
			if err := r.Store.Put(gctx, key, value); err != nil {
				failures[i] = &types.BackendError{StoreID: r.ID, Err: err}
			}
			if sampled {
				s.logger.Debug("put branch completed",
					"op", op, "store", r.ID, "key", key, "err", failures[i])
			}
			return nil
		})
	}
	g.Wait()

	acked := 0
	var errs []error
	for _, err := range failures {
		if err == nil {
			acked++
		} else {
			errs = append(errs, err)
		}
	}
	if acked == 0 {
		return fmt.Errorf("put %q failed on every store: %w", key, errors.Join(errs...))
	}
	if len(errs) > 0 {
		s.logger.Warn("put acknowledged by a subset of stores",
			"op", op, "key", key, "acked", acked, "failed", len(errs))
	}
	return nil
}

// Get queries all stores concurrently and classifies the result:
//
//   - every answering store agrees on a value: that value
//   - a value exists but some store definitively lacks it:
//     *types.ObservedPartialError
//   - no store has it and absence is not provable (failures, or
//     pending queue entries): *types.AmbiguousAbsentError
//   - provably absent everywhere: nil, nil
//
// Stores that could not confirm a held value get sync-queue entries
// appended so the healer eventually reconciles them.
func (s *Store) Get(ctx context.Context, key string) (*types.BlobValue, error) {
	op := s.tel.NextOp()
	branches := s.fanOutGet(ctx, key)
	if s.tel.Sampled() {
		for _, b := range branches {
			s.logger.Debug("get branch completed",
				"op", op, "store", b.id, "key", key, "absent", b.absent, "err", b.err)
		}
	}
	return s.classify(ctx, key, branches)
}

func (s *Store) fanOutGet(ctx context.Context, key string) []branch {
	branches := make([]branch, len(s.replicas))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range s.replicas {
		g.Go(func() error {
			v, err := r.Store.Get(gctx, key)
			switch {
			case err == nil:
				branches[i] = branch{id: r.ID, value: v}
			case errors.Is(err, types.ErrBlobNotFound):
				branches[i] = branch{id: r.ID, absent: true}
			default:
				branches[i] = branch{id: r.ID, err: &types.BackendError{StoreID: r.ID, Err: err}}
			}
			return nil
		})
	}
	g.Wait()
	return branches
}

func (s *Store) classify(ctx context.Context, key string, branches []branch) (*types.BlobValue, error) {
	var value *types.BlobValue
	for _, b := range branches {
		if b.value == nil {
			continue
		}
		if value == nil {
			value = b.value
		} else if value.Checksum != b.value.Checksum {
			// Content addressing upstream makes this a corruption, not
			// a conflict to resolve. Keep the first answer and shout.
			s.logger.Error("replicas disagree on content",
				"key", key, "store", b.id)
		}
	}

	if value != nil {
		var missing []types.StoreID
		var unconfirmed []types.StoreID
		for _, b := range branches {
			if b.absent {
				missing = append(missing, b.id)
				unconfirmed = append(unconfirmed, b.id)
			}
			if b.err != nil {
				unconfirmed = append(unconfirmed, b.id)
			}
		}
		s.enqueueUnconfirmed(ctx, key, unconfirmed)
		if len(missing) > 0 {
			return nil, &types.ObservedPartialError{Key: key, Missing: missing, Value: value}
		}
		return value, nil
	}

	var causes []error
	answered := false
	for _, b := range branches {
		if b.err != nil {
			causes = append(causes, b.err)
		}
		if b.absent {
			answered = true
		}
	}
	if !answered {
		return nil, &types.AmbiguousAbsentError{Key: key, Causes: causes}
	}

	pending, err := s.queue.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("sync queue lookup for %q: %w", key, err)
	}
	if len(pending) > 0 {
		return nil, &types.AmbiguousAbsentError{Key: key, Pending: true, Causes: causes}
	}
	return nil, nil
}

// Contains runs the same fan-out and classification reduced to a
// boolean. A partially replicated value counts as present.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	op := s.tel.NextOp()
	sampled := s.tel.Sampled()

	branches := make([]branch, len(s.replicas))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range s.replicas {
		g.Go(func() error {
			ok, err := r.Store.Contains(gctx, key)
			switch {
			case err != nil:
				branches[i] = branch{id: r.ID, err: &types.BackendError{StoreID: r.ID, Err: err}}
			case ok:
				branches[i] = branch{id: r.ID, value: &types.BlobValue{}}
			default:
				branches[i] = branch{id: r.ID, absent: true}
			}
			if sampled {
				s.logger.Debug("contains branch completed",
					"op", op, "store", r.ID, "key", key, "err", err)
			}
			return nil
		})
	}
	g.Wait()

	var causes []error
	answered := false
	for _, b := range branches {
		if b.value != nil {
			return true, nil
		}
		if b.err != nil {
			causes = append(causes, b.err)
		}
		if b.absent {
			answered = true
		}
	}
	if !answered {
		return false, &types.AmbiguousAbsentError{Key: key, Causes: causes}
	}
	pending, err := s.queue.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("sync queue lookup for %q: %w", key, err)
	}
	if len(pending) > 0 {
		return false, &types.AmbiguousAbsentError{Key: key, Pending: true, Causes: causes}
	}
	return false, nil
}

// RepairPut forces value onto a single store, tagged with the same
// telemetry sequence as regular operations. Used by the scrub layer to
// fix an observed partial inline.
func (s *Store) RepairPut(ctx context.Context, id types.StoreID, key string, value types.BlobValue) (types.OverwriteStatus, error) {
	op := s.tel.NextOp()
	for _, r := range s.replicas {
		if r.ID != id {
			continue
		}
		status, err := r.Store.PutExplicit(ctx, key, value, types.OverwriteAlways)
		if err != nil {
			return status, &types.BackendError{StoreID: id, Err: err}
		}
		if s.tel.Sampled() {
			s.logger.Debug("repair put completed",
				"op", op, "store", id, "key", key, "status", status.String())
		}
		return status, nil
	}
	return types.StatusSkipped, fmt.Errorf("store %s not in topology", id)
}

func (s *Store) enqueueUnconfirmed(ctx context.Context, key string, ids []types.StoreID) {
	if len(ids) == 0 {
		return
	}
	now := time.Now().UTC()
	entries := make([]types.SyncQueueEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, types.SyncQueueEntry{
			ID:        s.newID(),
			StoreID:   id,
			Key:       key,
			CreatedAt: now,
		})
	}
	// Best effort: the read path must not fail because bookkeeping did.
	if err := s.queue.Add(ctx, entries); err != nil {
		s.logger.Warn("sync queue append failed on read path",
			"key", key, "stores", len(ids), "err", err)
	}
}
