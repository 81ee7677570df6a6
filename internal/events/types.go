// Package events defines the event schema fed to operational tooling:
// per-store repair reports from the scrub layer and per-pass summaries
// from the healer.
package events

import (
	"time"

	"blobmux/internal/core/storage/types"
)

// Subjects within the event stream.
const (
	SubjectRepair = "repair"
	SubjectHeal   = "heal"
)

// RepairEvent reports one scrub decision about one (store, key) pair.
// Repaired is false both in report-only mode and when an inline repair
// attempt failed; in the latter case the pair stays covered by the
// sync queue.
type RepairEvent struct {
	StoreID  types.StoreID `json:"storeId"`
	Key      string        `json:"key"`
	Repaired bool          `json:"repaired"`

	// Timestamp is Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewRepairEvent creates a RepairEvent stamped with the current time.
func NewRepairEvent(store types.StoreID, key string, repaired bool) RepairEvent {
	return RepairEvent{
		StoreID:   store,
		Key:       key,
		Repaired:  repaired,
		Timestamp: nowMilli(),
	}
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

// HealEvent summarizes one healer pass. Stuck counts keys held by no
// store, the state the healer cannot resolve and never auto-purges.
type HealEvent struct {
	Entries    int  `json:"entries"`
	Keys       int  `json:"keys"`
	Reconciled int  `json:"reconciled"`
	Copies     int  `json:"copies"`
	Stuck      int  `json:"stuck"`
	Failures   int  `json:"failures"`
	DryRun     bool `json:"dryRun"`

	// Timestamp is Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}
