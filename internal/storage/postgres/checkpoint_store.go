package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"curve-engine/internal/storage"
)

// CheckpointStore is a PostgreSQL implementation of storage.CheckpointStore.
// Uses two tables:
//   - ingestion_checkpoint: single row with the last processed slot
//   - seen_transactions: set of fully processed signatures
type CheckpointStore struct {
	pool *Pool
}

// NewCheckpointStore creates a new PostgreSQL checkpoint store.
func NewCheckpointStore(pool *Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// LastProcessedSlot returns the checkpoint slot.
func (s *CheckpointStore) LastProcessedSlot(ctx context.Context) (int64, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slot FROM ingestion_checkpoint LIMIT 1
	`)

	var slot int64
	if err := row.Scan(&slot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}

	return slot, nil
}

// SetLastProcessedSlot saves the checkpoint slot.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CheckpointStore) SetLastProcessedSlot(ctx context.Context, slot int64) error {
	if slot < 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_checkpoint (id, slot, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    updated_at = NOW()
	`, slot)

	return err
}

// IsTransactionSeen checks if a signature has been claimed.
func (s *CheckpointStore) IsTransactionSeen(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM seen_transactions WHERE signature = $1)
	`, signature)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// MarkTransactionSeen claims a signature. ON CONFLICT DO NOTHING makes
// the insert the race arbiter: rows affected tells whether this call
// won the claim.
func (s *CheckpointStore) MarkTransactionSeen(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO seen_transactions (signature, seen_at)
		VALUES ($1, NOW())
		ON CONFLICT (signature) DO NOTHING
	`, signature)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
