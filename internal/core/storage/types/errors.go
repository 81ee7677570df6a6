package types

import (
	"fmt"
	"sort"
	"strings"
)

// BackendError wraps a single store's I/O failure with the originating
// store id for diagnosis. A backend error never proves absence.
type BackendError struct {
	StoreID StoreID
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("store %s: %v", e.StoreID, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// AmbiguousAbsentError reports that absence could not be proven for a
// key: either every store failed, or every answering store said
// "no value" while a pending write might still explain the gap.
// Callers must not collapse this into a plain miss; only a layer that
// can consult the sync queue is allowed to do that.
type AmbiguousAbsentError struct {
	Key string
	// Pending is true when undelivered sync-queue entries exist for the
	// key, i.e. a write may still be in flight.
	Pending bool
	// Causes holds the per-store failures that prevented a definitive
	// answer, if any.
	Causes []error
}

func (e *AmbiguousAbsentError) Error() string {
	if e.Pending {
		return fmt.Sprintf("key %q: absence is ambiguous, sync queue has pending entries", e.Key)
	}
	return fmt.Sprintf("key %q: absence is ambiguous, %d store(s) failed", e.Key, len(e.Causes))
}

func (e *AmbiguousAbsentError) Unwrap() []error {
	return e.Causes
}

// ObservedPartialError reports a reconcilable divergence: at least one
// store holds the value while at least one other store definitively
// reported "no value". Value carries the authoritative content; Missing
// lists the stores lacking it.
type ObservedPartialError struct {
	Key     string
	Missing []StoreID
	Value   *BlobValue
}

func (e *ObservedPartialError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = string(id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("key %q: value missing from store(s) %s", e.Key, strings.Join(ids, ", "))
}
