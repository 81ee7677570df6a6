package storage

import (
	"blobmux/internal/core/storage/types"
)

type StoreID = types.StoreID
type BlobValue = types.BlobValue
type SyncQueueEntry = types.SyncQueueEntry
type BackingStore = types.BackingStore
type SyncQueue = types.SyncQueue
type BlobStore = types.BlobStore
type Replica = types.Replica
type OverwritePolicy = types.OverwritePolicy
type OverwriteStatus = types.OverwriteStatus
type BackendError = types.BackendError
type AmbiguousAbsentError = types.AmbiguousAbsentError
type ObservedPartialError = types.ObservedPartialError

const (
	OverwriteIfMissing = types.OverwriteIfMissing
	OverwriteAlways    = types.OverwriteAlways
)

const (
	StatusWritten   = types.StatusWritten
	StatusIdentical = types.StatusIdentical
	StatusReplaced  = types.StatusReplaced
	StatusSkipped   = types.StatusSkipped
)

var (
	ErrBlobNotFound = types.ErrBlobNotFound
)
