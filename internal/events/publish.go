package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"blobmux/internal/core/pubsub"
	"blobmux/internal/core/storage/types"
	"blobmux/internal/healer"
)

// RepairReporter publishes RepairEvents. It satisfies the scrub
// layer's handler contract. Publish failures are logged and dropped:
// event delivery must never affect the read path.
type RepairReporter struct {
	pub    pubsub.Publisher
	logger *slog.Logger
}

// NewRepairReporter creates a reporter publishing to pub.
func NewRepairReporter(pub pubsub.Publisher, logger *slog.Logger) *RepairReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairReporter{pub: pub, logger: logger}
}

// OnRepair publishes one repair report.
func (r *RepairReporter) OnRepair(ctx context.Context, store types.StoreID, key string, repaired bool) {
	data, err := json.Marshal(NewRepairEvent(store, key, repaired))
	if err != nil {
		r.logger.Warn("repair event marshal failed", "key", key, "err", err)
		return
	}
	if err := r.pub.Publish(ctx, SubjectRepair, data); err != nil {
		r.logger.Warn("repair event publish failed", "key", key, "err", err)
	}
}

// NewPassObserver returns a healer pass observer that publishes a
// HealEvent per completed pass.
func NewPassObserver(pub pubsub.Publisher, dryRun bool, logger *slog.Logger) healer.PassFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, stats healer.PassStats) {
		ev := HealEvent{
			Entries:    stats.Entries,
			Keys:       stats.Keys,
			Reconciled: stats.Reconciled,
			Copies:     stats.Copies,
			Stuck:      stats.Stuck,
			Failures:   stats.Failures,
			DryRun:     dryRun,
			Timestamp:  nowMilli(),
		}
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Warn("heal event marshal failed", "err", err)
			return
		}
		if err := pub.Publish(ctx, SubjectHeal, data); err != nil {
			logger.Warn("heal event publish failed", "err", err)
		}
	}
}
