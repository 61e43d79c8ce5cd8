// Package cache holds the fast read-model caches: bounded per-token swap
// history, holder snapshots and small string values with TTL. All caches
// are best-effort; callers treat failures as cache misses.
package cache

import (
	"context"
	"errors"
	"time"

	"curve-engine/internal/domain"
)

// ErrMiss is returned when a requested entry is absent.
var ErrMiss = errors.New("cache miss")

// DefaultMaxSwaps bounds the per-token swap history.
const DefaultMaxSwaps = 1000

// SwapHistory is a bounded most-recent-first swap list per token.
type SwapHistory interface {
	// Push prepends one swap and trims the list to its bound.
	Push(ctx context.Context, mint string, rec *domain.SwapRecord) error

	// List returns up to limit swaps, most recent first. A limit <= 0
	// returns the full bounded list.
	List(ctx context.Context, mint string, limit int) ([]*domain.SwapRecord, error)
}

// HolderCache stores the latest holder snapshot per token.
type HolderCache interface {
	// Get returns the stored snapshot. Returns ErrMiss when absent.
	Get(ctx context.Context, mint string) (*domain.HolderSnapshot, error)

	// Set replaces the snapshot wholesale.
	Set(ctx context.Context, mint string, snap *domain.HolderSnapshot) error
}

// StringCache stores small string values with a TTL, used for the SOL
// price quote.
type StringCache interface {
	// GetString returns the value. Returns ErrMiss when absent or expired.
	GetString(ctx context.Context, key string) (string, error)

	// SetString stores the value for ttl.
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}
