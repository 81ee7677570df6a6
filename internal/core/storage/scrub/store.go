// Package scrub wraps the multiplexed store with read-time divergence
// handling: it is the one layer allowed to collapse an ambiguous
// outcome into a plain answer, because it is the one that knows the
// applicable repair policy and can consult the sync queue.
package scrub

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"blobmux/internal/core/storage/types"
)

// Action governs whether an observed partial is fixed inline or only
// reported. Supplied at construction time; not mutable at runtime.
type Action string

const (
	// ReportOnly logs and reports divergence without mutating any store.
	ReportOnly Action = "report_only"

	// Repair overwrites lagging stores inline during the read.
	Repair Action = "repair"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ReportOnly || a == Repair
}

// Handler observes repair decisions. Called once per (store, key) with
// repaired=false when the store was only reported (ReportOnly mode or
// a failed repair attempt), true when the copy succeeded. Purely
// observational: implementations must not assume they run on the hot
// path's error budget.
type Handler interface {
	OnRepair(ctx context.Context, store types.StoreID, key string, repaired bool)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, store types.StoreID, key string, repaired bool)

func (f HandlerFunc) OnRepair(ctx context.Context, store types.StoreID, key string, repaired bool) {
	f(ctx, store, key, repaired)
}

// NopHandler discards all repair reports.
var NopHandler = HandlerFunc(func(context.Context, types.StoreID, string, bool) {})

// Store is the client-facing blob store: a multiplexed store plus the
// authority to resolve its ambiguous outcomes.
type Store struct {
	inner   Multiplexed
	queue   types.SyncQueue
	action  Action
	handler Handler
	logger  *slog.Logger
}

// Multiplexed is the raw multiplexed contract consumed by the scrub
// layer. Satisfied by *mux.Store; an interface so tests can substitute
// it.
type Multiplexed interface {
	Get(ctx context.Context, key string) (*types.BlobValue, error)
	Put(ctx context.Context, key string, value types.BlobValue) error
	Contains(ctx context.Context, key string) (bool, error)
	RepairPut(ctx context.Context, id types.StoreID, key string, value types.BlobValue) (types.OverwriteStatus, error)
}

// NewStore wraps inner with scrub semantics. handler may be nil, in
// which case reports are discarded.
func NewStore(inner Multiplexed, queue types.SyncQueue, action Action, handler Handler, logger *slog.Logger) *Store {
	if handler == nil {
		handler = NopHandler
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		inner:   inner,
		queue:   queue,
		action:  action,
		handler: handler,
		logger:  logger,
	}
}

// Put delegates to the multiplexed store.
func (s *Store) Put(ctx context.Context, key string, value types.BlobValue) error {
	return s.inner.Put(ctx, key, value)
}

// Contains delegates to the multiplexed store.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	return s.inner.Contains(ctx, key)
}

// Get reads key through the multiplexed store and resolves ambiguous
// outcomes:
//
//   - ambiguous absence with an empty sync queue is provable absence
//     and becomes a plain miss;
//   - ambiguous absence with pending entries stays an error (a write
//     may still be in flight);
//   - an observed partial yields the surviving value, after repairing
//     or reporting the lagging stores per the configured action.
//
// A failed inline repair never fails the read. The lagging store stays
// covered by its sync-queue entries, so the healer catches it later.
func (s *Store) Get(ctx context.Context, key string) (*types.BlobValue, error) {
	value, err := s.inner.Get(ctx, key)
	if err == nil {
		return value, nil
	}

	var ambiguous *types.AmbiguousAbsentError
	if errors.As(err, &ambiguous) {
		pending, qerr := s.queue.Get(ctx, key)
		if qerr != nil {
			return nil, err
		}
		if len(pending) == 0 {
			return nil, nil
		}
		return nil, err
	}

	var partial *types.ObservedPartialError
	if errors.As(err, &partial) && partial.Value != nil {
		s.resolvePartial(ctx, partial)
		return partial.Value, nil
	}

	return nil, err
}

func (s *Store) resolvePartial(ctx context.Context, partial *types.ObservedPartialError) {
	if s.action == ReportOnly {
		for _, id := range partial.Missing {
			s.handler.OnRepair(ctx, id, partial.Key, false)
		}
		s.logger.Info("divergence reported",
			"key", partial.Key, "missing", len(partial.Missing), "action", string(ReportOnly))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range partial.Missing {
		g.Go(func() error {
			status, err := s.inner.RepairPut(gctx, id, partial.Key, *partial.Value)
			if err != nil {
				s.logger.Warn("inline repair failed",
					"key", partial.Key, "store", id, "err", err)
			}
			s.handler.OnRepair(gctx, id, partial.Key, err == nil)
			if err == nil {
				s.logger.Info("inline repair completed",
					"key", partial.Key, "store", id, "status", status.String())
			}
			return nil
		})
	}
	g.Wait()
}
