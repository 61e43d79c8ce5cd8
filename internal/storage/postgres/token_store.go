package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"curve-engine/internal/domain"
	"curve-engine/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Create inserts the token if the mint is unknown. The conflict target is
// the mint primary key; an existing row is left untouched.
func (s *TokenStore) Create(ctx context.Context, t *domain.Token) (bool, error) {
	if t == nil || t.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (
			mint, name, ticker, creator, status,
			reserve_token, reserve_lamport, price, price_usd, sol_price_usd,
			market_cap_usd, liquidity, curve_progress, volume_24h,
			holder_count, decimals, tx_id, created_at, last_updated
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19
		)
		ON CONFLICT (mint) DO NOTHING
	`,
		t.Mint, t.Name, t.Ticker, t.Creator, string(t.Status),
		t.ReserveToken, t.ReserveLamport, t.Price, t.PriceUSD, t.SolPriceUSD,
		t.MarketCapUSD, t.Liquidity, t.CurveProgress, t.Volume24h,
		t.HolderCount, t.Decimals, t.TxID, t.CreatedAt, t.LastUpdated,
	)
	if err != nil {
		return false, fmt.Errorf("insert token: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Get retrieves a token by mint.
func (s *TokenStore) Get(ctx context.Context, mint string) (*domain.Token, error) {
	var t domain.Token
	var status string

	err := s.pool.QueryRow(ctx, `
		SELECT mint, name, ticker, creator, status,
		       reserve_token, reserve_lamport, price, price_usd, sol_price_usd,
		       market_cap_usd, liquidity, curve_progress, volume_24h,
		       holder_count, decimals, tx_id, created_at, last_updated
		FROM tokens
		WHERE mint = $1
	`, mint).Scan(
		&t.Mint, &t.Name, &t.Ticker, &t.Creator, &status,
		&t.ReserveToken, &t.ReserveLamport, &t.Price, &t.PriceUSD, &t.SolPriceUSD,
		&t.MarketCapUSD, &t.Liquidity, &t.CurveProgress, &t.Volume24h,
		&t.HolderCount, &t.Decimals, &t.TxID, &t.CreatedAt, &t.LastUpdated,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	t.Status = domain.TokenStatus(status)
	return &t, nil
}

// ApplySwap overwrites pricing fields and increments volume in a single
// statement so concurrent swap handlers never lose an increment.
func (s *TokenStore) ApplySwap(ctx context.Context, mint string, eco storage.TokenEconomics) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens SET
			reserve_token  = $2,
			reserve_lamport = $3,
			price          = $4,
			price_usd      = $5,
			sol_price_usd  = $6,
			market_cap_usd = $7,
			liquidity      = $8,
			curve_progress = $9,
			volume_24h     = COALESCE(volume_24h, 0) + $10,
			tx_id          = $11,
			last_updated   = $12
		WHERE mint = $1
	`,
		mint,
		eco.ReserveToken, eco.ReserveLamport,
		eco.Price, eco.PriceUSD, eco.SolPriceUSD,
		eco.MarketCapUSD, eco.Liquidity, eco.CurveProgress,
		eco.VolumeDelta, eco.TxID, eco.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("apply swap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// TransitionStatus performs a guarded status update. The guard is encoded
// in the WHERE clause so the check and the write are one atomic statement.
func (s *TokenStore) TransitionStatus(ctx context.Context, mint string, to domain.TokenStatus, allowedFrom ...domain.TokenStatus) (bool, error) {
	var tag pgconn.CommandTag
	var err error

	if len(allowedFrom) == 0 {
		tag, err = s.pool.Exec(ctx, `
			UPDATE tokens SET status = $2, last_updated = $3 WHERE mint = $1
		`, mint, string(to), time.Now().UTC())
	} else {
		from := make([]string, len(allowedFrom))
		for i, st := range allowedFrom {
			from[i] = string(st)
		}
		tag, err = s.pool.Exec(ctx, `
			UPDATE tokens SET status = $2, last_updated = $3
			WHERE mint = $1 AND status = ANY($4)
		`, mint, string(to), time.Now().UTC(), from)
	}
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetHolderCount stores the holder count from the latest snapshot.
func (s *TokenStore) SetHolderCount(ctx context.Context, mint string, count int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tokens SET holder_count = $2 WHERE mint = $1
	`, mint, count)
	if err != nil {
		return fmt.Errorf("set holder count: %w", err)
	}
	return nil
}

// RecentlyTraded returns mints updated at or after the cutoff.
func (s *TokenStore) RecentlyTraded(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mint FROM tokens WHERE last_updated >= $1 ORDER BY last_updated DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query recently traded: %w", err)
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, fmt.Errorf("scan mint: %w", err)
		}
		mints = append(mints, mint)
	}
	return mints, rows.Err()
}
