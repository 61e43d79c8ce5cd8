package memory

import (
	"context"
	"sync"

	"curve-engine/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
// Safe for concurrent use.
type CheckpointStore struct {
	mu       sync.RWMutex
	slot     int64
	hasSlot  bool
	seenSigs map[string]struct{}
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		seenSigs: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// LastProcessedSlot returns the checkpoint slot.
func (s *CheckpointStore) LastProcessedSlot(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasSlot {
		return 0, storage.ErrNotFound
	}
	return s.slot, nil
}

// SetLastProcessedSlot saves the checkpoint slot.
func (s *CheckpointStore) SetLastProcessedSlot(ctx context.Context, slot int64) error {
	if slot < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slot = slot
	s.hasSlot = true
	return nil
}

// IsTransactionSeen checks if a signature has been claimed.
func (s *CheckpointStore) IsTransactionSeen(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, seen := s.seenSigs[signature]
	return seen, nil
}

// MarkTransactionSeen claims a signature; the first caller wins.
func (s *CheckpointStore) MarkTransactionSeen(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.seenSigs[signature]; seen {
		return false, nil
	}
	s.seenSigs[signature] = struct{}{}
	return true, nil
}
