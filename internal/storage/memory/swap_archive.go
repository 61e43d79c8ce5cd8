package memory

import (
	"context"
	"sort"
	"sync"

	"curve-engine/internal/domain"
	"curve-engine/internal/storage"
)

// SwapArchive is an in-memory implementation of storage.SwapArchive.
// Safe for concurrent use.
type SwapArchive struct {
	mu    sync.RWMutex
	byID  map[string]*domain.SwapRecord
	order []string
}

// NewSwapArchive creates a new in-memory swap archive.
func NewSwapArchive() *SwapArchive {
	return &SwapArchive{
		byID: make(map[string]*domain.SwapRecord),
	}
}

// Compile-time interface check.
var _ storage.SwapArchive = (*SwapArchive)(nil)

// Insert appends one swap. Returns ErrDuplicateKey on a repeated ID.
func (s *SwapArchive) Insert(ctx context.Context, rec *domain.SwapRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *rec
	s.byID[rec.ID] = &cp
	s.order = append(s.order, rec.ID)
	return nil
}

// GetByMint retrieves archived swaps for a mint, newest first.
func (s *SwapArchive) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*domain.SwapRecord
	for _, id := range s.order {
		rec := s.byID[id]
		if rec.Mint == mint {
			cp := *rec
			recs = append(recs, &cp)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
