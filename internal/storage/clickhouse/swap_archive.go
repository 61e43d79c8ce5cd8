package clickhouse

import (
	"context"
	"fmt"
	"time"

	"curve-engine/internal/domain"
	"curve-engine/internal/storage"
)

// SwapArchive implements storage.SwapArchive using ClickHouse.
type SwapArchive struct {
	conn *Conn
}

// NewSwapArchive creates a new SwapArchive.
func NewSwapArchive(conn *Conn) *SwapArchive {
	return &SwapArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapArchive = (*SwapArchive)(nil)

// Insert appends one swap. ClickHouse does not enforce uniqueness, so
// duplicates are rejected with an existence probe before the write.
func (s *SwapArchive) Insert(ctx context.Context, rec *domain.SwapRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO swaps (
			id, mint, user, direction, amount_in, amount_out,
			price, price_usd, tx_id, slot, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Mint, rec.User, uint8(rec.Direction),
		rec.AmountIn, rec.AmountOut, rec.Price, rec.PriceUSD,
		rec.TxID, uint64(rec.Slot), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}

	return nil
}

// GetByMint retrieves archived swaps for a mint, newest first.
func (s *SwapArchive) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.SwapRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.conn.Query(ctx, `
		SELECT id, mint, user, direction, amount_in, amount_out,
		       price, price_usd, tx_id, slot, timestamp
		FROM swaps
		WHERE mint = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("query swaps: %w", err)
	}
	defer rows.Close()

	var recs []*domain.SwapRecord
	for rows.Next() {
		var rec domain.SwapRecord
		var direction uint8
		var slot uint64
		var ts time.Time

		err := rows.Scan(
			&rec.ID, &rec.Mint, &rec.User, &direction,
			&rec.AmountIn, &rec.AmountOut, &rec.Price, &rec.PriceUSD,
			&rec.TxID, &slot, &ts,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap: %w", err)
		}

		rec.Direction = int(direction)
		rec.Slot = int64(slot)
		rec.Timestamp = ts
		recs = append(recs, &rec)
	}

	return recs, rows.Err()
}

func (s *SwapArchive) exists(ctx context.Context, id string) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM swaps WHERE id = ?
	`, id)

	var count uint64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
