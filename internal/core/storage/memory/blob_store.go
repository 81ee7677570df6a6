// Package memory provides in-process implementations of the backing
// store and sync queue contracts. Used by tests and by the standalone
// topology.
package memory

import (
	"context"
	"fmt"
	"sync"

	"blobmux/internal/core/storage/types"
)

// BlobStore is an in-memory BackingStore.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]types.BlobValue
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string]types.BlobValue),
	}
}

func (s *BlobStore) Get(ctx context.Context, key string) (*types.BlobValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.blobs[key]
	if !ok {
		return nil, types.ErrBlobNotFound
	}
	return &v, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, value types.BlobValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.blobs[key]; ok {
		if existing.Checksum == value.Checksum {
			return nil
		}
		return fmt.Errorf("key %q already holds different content", key)
	}
	s.blobs[key] = value
	return nil
}

func (s *BlobStore) PutExplicit(ctx context.Context, key string, value types.BlobValue, policy types.OverwritePolicy) (types.OverwriteStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.blobs[key]
	if !ok {
		s.blobs[key] = value
		return types.StatusWritten, nil
	}
	if existing.Checksum == value.Checksum {
		return types.StatusIdentical, nil
	}
	if policy == types.OverwriteIfMissing {
		return types.StatusSkipped, nil
	}
	s.blobs[key] = value
	return types.StatusReplaced, nil
}

func (s *BlobStore) Contains(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *BlobStore) Close(ctx context.Context) error {
	return nil
}

// Len reports the number of stored blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Delete removes a key outright. Test helper; the production contract
// has no delete.
func (s *BlobStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
}
