package types

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"
)

// ErrBlobNotFound is returned by a backing store when a key definitively
// holds no value. Any other error from a store is treated as a backend
// failure, not as proof of absence.
var ErrBlobNotFound = errors.New("blob not found")

// StoreID identifies one backing store within a replica topology.
// Assigned at configuration time and stable for the topology's lifetime.
type StoreID string

// BlobValue is an opaque payload stored under a key. Content is
// write-once per key: the same key always carries the same bytes, so
// overwrites with matching checksums are no-ops.
type BlobValue struct {
	Content   []byte
	Checksum  string
	CreatedAt time.Time
}

// NewBlobValue builds a BlobValue with its content checksum computed.
func NewBlobValue(content []byte) BlobValue {
	return BlobValue{
		Content:   content,
		Checksum:  ChecksumOf(content),
		CreatedAt: time.Now().UTC(),
	}
}

// ChecksumOf returns the hex-encoded blake3 checksum of content.
func ChecksumOf(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// OverwritePolicy controls how an explicit put treats an existing value.
type OverwritePolicy int

const (
	// OverwriteIfMissing writes only when the key holds no value.
	OverwriteIfMissing OverwritePolicy = iota

	// OverwriteAlways replaces whatever the key currently holds.
	OverwriteAlways
)

// OverwriteStatus reports what an explicit put actually did.
type OverwriteStatus int

const (
	// StatusWritten means the key held no value and one was written.
	StatusWritten OverwriteStatus = iota

	// StatusIdentical means the key already held identical content.
	StatusIdentical

	// StatusReplaced means differing existing content was overwritten.
	StatusReplaced

	// StatusSkipped means differing existing content was left in place
	// because the policy was OverwriteIfMissing.
	StatusSkipped
)

func (s OverwriteStatus) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusIdentical:
		return "identical"
	case StatusReplaced:
		return "replaced"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// BackingStore is the minimal contract a physical blob backend satisfies.
// Implementations exist per backend family (mongo, postgres, memory);
// the multiplexing layer holds them behind this interface so new
// backends can be added without touching the core.
type BackingStore interface {
	// Get returns the value stored under key, or ErrBlobNotFound when
	// the store definitively holds no value for it.
	Get(ctx context.Context, key string) (*BlobValue, error)

	// Put stores value under key. Storing identical content twice is a
	// no-op; differing content under the same key is an error.
	Put(ctx context.Context, key string, value BlobValue) error

	// PutExplicit stores value under key according to policy, reporting
	// what was done. Used by repair paths that must force convergence.
	PutExplicit(ctx context.Context, key string, value BlobValue, policy OverwritePolicy) (OverwriteStatus, error)

	// Contains reports whether the store holds a value for key.
	Contains(ctx context.Context, key string) (bool, error)

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// Replica pairs a backing store with its topology-assigned identifier.
type Replica struct {
	ID    StoreID
	Store BackingStore
}

// SyncQueueEntry records that key may not be present in the store
// identified by StoreID. Entries are append-only: created by the
// multiplexing layer, removed only by the healer once the pair is
// verified consistent.
type SyncQueueEntry struct {
	ID        string
	StoreID   StoreID
	Key       string
	CreatedAt time.Time
}

// SyncQueue is the write-ahead log of possibly-inconsistent
// (store, key) pairs. An entry's presence is a conservative
// over-approximation: it is always safe to treat the pair as possibly
// inconsistent while an entry exists, and only safe to treat it as
// consistent after explicit acknowledgement.
//
// Implementations must tolerate concurrent appenders and acknowledgers.
type SyncQueue interface {
	// Add appends entries. Appending an entry for a (store, key) pair
	// that is already pending is a no-op.
	Add(ctx context.Context, entries []SyncQueueEntry) error

	// Get returns all pending entries for key.
	Get(ctx context.Context, key string) ([]SyncQueueEntry, error)

	// FetchBatch returns up to limit pending entries, oldest first.
	FetchBatch(ctx context.Context, limit int) ([]SyncQueueEntry, error)

	// Acknowledge removes entries whose pairs have been verified
	// consistent.
	Acknowledge(ctx context.Context, entries []SyncQueueEntry) error

	// Close releases the queue's resources.
	Close(ctx context.Context) error
}

// BlobStore is the client-facing contract of the assembled stack
// (scrub over multiplex over replicas).
type BlobStore interface {
	Get(ctx context.Context, key string) (*BlobValue, error)
	Put(ctx context.Context, key string, value BlobValue) error
	Contains(ctx context.Context, key string) (bool, error)
}

// NewEntries builds one queue entry per replica for key, sharing a
// single creation timestamp.
func NewEntries(replicas []Replica, key string, id func() string) []SyncQueueEntry {
	now := time.Now().UTC()
	entries := make([]SyncQueueEntry, 0, len(replicas))
	for _, r := range replicas {
		entries = append(entries, SyncQueueEntry{
			ID:        id(),
			StoreID:   r.ID,
			Key:       key,
			CreatedAt: now,
		})
	}
	return entries
}
