package cache

import (
	"context"
	"sync"
	"time"

	"curve-engine/internal/domain"
)

// Memory is an in-process implementation of the cache interfaces.
// Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	maxSwaps int
	swaps    map[string][]*domain.SwapRecord
	holders  map[string]*domain.HolderSnapshot
	strings  map[string]memoryString
}

type memoryString struct {
	value     string
	expiresAt time.Time
}

// NewMemory creates an in-process cache with the given swap list bound.
// A bound <= 0 uses DefaultMaxSwaps.
func NewMemory(maxSwaps int) *Memory {
	if maxSwaps <= 0 {
		maxSwaps = DefaultMaxSwaps
	}
	return &Memory{
		maxSwaps: maxSwaps,
		swaps:    make(map[string][]*domain.SwapRecord),
		holders:  make(map[string]*domain.HolderSnapshot),
		strings:  make(map[string]memoryString),
	}
}

// Compile-time interface checks.
var (
	_ SwapHistory = (*Memory)(nil)
	_ HolderCache = (*Memory)(nil)
	_ StringCache = (*Memory)(nil)
)

// Push prepends the swap and trims the list to the bound.
func (m *Memory) Push(ctx context.Context, mint string, rec *domain.SwapRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	list := append([]*domain.SwapRecord{&cp}, m.swaps[mint]...)
	if len(list) > m.maxSwaps {
		list = list[:m.maxSwaps]
	}
	m.swaps[mint] = list
	return nil
}

// List returns up to limit swaps, most recent first.
func (m *Memory) List(ctx context.Context, mint string, limit int) ([]*domain.SwapRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.swaps[mint]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	out := make([]*domain.SwapRecord, len(list))
	for i, rec := range list {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

// Get returns the stored holder snapshot.
func (m *Memory) Get(ctx context.Context, mint string) (*domain.HolderSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, exists := m.holders[mint]
	if !exists {
		return nil, ErrMiss
	}

	cp := *snap
	cp.Holders = append([]domain.TokenHolder(nil), snap.Holders...)
	return &cp, nil
}

// Set replaces the holder snapshot wholesale.
func (m *Memory) Set(ctx context.Context, mint string, snap *domain.HolderSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *snap
	cp.Holders = append([]domain.TokenHolder(nil), snap.Holders...)
	m.holders[mint] = &cp
	return nil
}

// GetString returns a string value, honoring expiry.
func (m *Memory) GetString(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.strings[key]
	if !exists || (!entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)) {
		return "", ErrMiss
	}
	return entry.value, nil
}

// SetString stores a string value with a TTL. A ttl <= 0 never expires.
func (m *Memory) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryString{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.strings[key] = entry
	return nil
}
