package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"curve-engine/internal/domain"
)

// Redis key layout. Swap lists and holder snapshots are namespaced per
// mint.
const (
	keySwapList = "swapsList:"
	keyHolders  = "holders:"
)

// Redis implements SwapHistory, HolderCache and StringCache on one Redis
// client.
type Redis struct {
	client   *redis.Client
	maxSwaps int64
}

// RedisOptions configure the Redis cache.
type RedisOptions struct {
	// MaxSwaps bounds each per-token swap list. Defaults to
	// DefaultMaxSwaps.
	MaxSwaps int
}

// NewRedis creates a Redis-backed cache and verifies connectivity.
func NewRedis(ctx context.Context, addr, password string, db int, opts *RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	maxSwaps := DefaultMaxSwaps
	if opts != nil && opts.MaxSwaps > 0 {
		maxSwaps = opts.MaxSwaps
	}

	return &Redis{client: client, maxSwaps: int64(maxSwaps)}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Compile-time interface checks.
var (
	_ SwapHistory = (*Redis)(nil)
	_ HolderCache = (*Redis)(nil)
	_ StringCache = (*Redis)(nil)
)

// Push prepends the swap and trims the list so it never exceeds the
// bound.
func (r *Redis) Push(ctx context.Context, mint string, rec *domain.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	key := keySwapList + mint
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.maxSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push swap: %w", err)
	}
	return nil
}

// List returns up to limit swaps, most recent first.
func (r *Redis) List(ctx context.Context, mint string, limit int) ([]*domain.SwapRecord, error) {
	stop := r.maxSwaps - 1
	if limit > 0 && int64(limit) < r.maxSwaps {
		stop = int64(limit) - 1
	}

	raw, err := r.client.LRange(ctx, keySwapList+mint, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("range swaps: %w", err)
	}

	recs := make([]*domain.SwapRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.SwapRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			// Skip entries written by incompatible versions
			continue
		}
		recs = append(recs, &rec)
	}
	return recs, nil
}

// Get returns the stored holder snapshot.
func (r *Redis) Get(ctx context.Context, mint string) (*domain.HolderSnapshot, error) {
	raw, err := r.client.Get(ctx, keyHolders+mint).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get holders: %w", err)
	}

	var snap domain.HolderSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal holders: %w", err)
	}
	return &snap, nil
}

// Set replaces the holder snapshot wholesale.
func (r *Redis) Set(ctx context.Context, mint string, snap *domain.HolderSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal holders: %w", err)
	}
	if err := r.client.Set(ctx, keyHolders+mint, data, 0).Err(); err != nil {
		return fmt.Errorf("set holders: %w", err)
	}
	return nil
}

// GetString returns a string value. Returns ErrMiss when absent.
func (r *Redis) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

// SetString stores a string value with a TTL.
func (r *Redis) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}
