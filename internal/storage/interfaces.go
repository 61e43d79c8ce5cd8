package storage

import (
	"context"
	"time"

	"curve-engine/internal/domain"
)

// TokenEconomics is the per-swap update applied to a token row. All
// pricing fields overwrite the stored values; VolumeDelta is added
// atomically to the rolling volume counter.
type TokenEconomics struct {
	ReserveToken   float64
	ReserveLamport float64
	Price          float64
	PriceUSD       float64
	SolPriceUSD    float64
	MarketCapUSD   float64
	Liquidity      float64
	CurveProgress  float64
	VolumeDelta    float64
	TxID           string
	LastUpdated    time.Time
}

// TokenStore provides access to the materialized per-mint token rows.
type TokenStore interface {
	// Create inserts a token row if the mint is unknown. Returns false
	// without error when the row already exists.
	Create(ctx context.Context, t *domain.Token) (bool, error)

	// Get retrieves a token by mint. Returns ErrNotFound if not exists.
	Get(ctx context.Context, mint string) (*domain.Token, error)

	// ApplySwap overwrites the token's pricing fields and atomically
	// increments volume by the delta. Returns ErrNotFound when the mint
	// has no row.
	ApplySwap(ctx context.Context, mint string, eco TokenEconomics) error

	// TransitionStatus moves the token to the target status if its
	// current status is one of allowedFrom (any status when empty).
	// Returns false without error when the guard does not match.
	TransitionStatus(ctx context.Context, mint string, to domain.TokenStatus, allowedFrom ...domain.TokenStatus) (bool, error)

	// SetHolderCount stores the holder count from the latest snapshot.
	SetHolderCount(ctx context.Context, mint string, count int) error

	// RecentlyTraded returns mints whose last update is at or after the
	// cutoff, for the periodic holder sweep.
	RecentlyTraded(ctx context.Context, since time.Time) ([]string, error)
}

// CheckpointStore persists ingestion progress and the processed
// transaction set used for replay deduplication.
type CheckpointStore interface {
	// LastProcessedSlot returns the stored checkpoint slot.
	// Returns ErrNotFound if no checkpoint has been saved yet.
	LastProcessedSlot(ctx context.Context) (int64, error)

	// SetLastProcessedSlot saves the checkpoint slot.
	SetLastProcessedSlot(ctx context.Context, slot int64) error

	// IsTransactionSeen checks if a signature has been claimed.
	IsTransactionSeen(ctx context.Context, signature string) (bool, error)

	// MarkTransactionSeen claims a signature. Returns true when this
	// call was the first to record it; concurrent duplicate deliveries
	// race on the insert, and exactly one claim wins.
	MarkTransactionSeen(ctx context.Context, signature string) (bool, error)
}

// SwapArchive is the durable append-only record of executed swaps.
type SwapArchive interface {
	// Insert appends one swap. Returns ErrDuplicateKey if the swap ID
	// was archived before.
	Insert(ctx context.Context, s *domain.SwapRecord) error

	// GetByMint retrieves archived swaps for a mint, newest first.
	GetByMint(ctx context.Context, mint string, limit int) ([]*domain.SwapRecord, error)
}
