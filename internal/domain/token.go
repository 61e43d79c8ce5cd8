package domain

import "time"

// TokenStatus is the lifecycle state of a launched token.
type TokenStatus string

const (
	StatusPending         TokenStatus = "pending"
	StatusActive          TokenStatus = "active"
	StatusMigrating       TokenStatus = "migrating"
	StatusMigrated        TokenStatus = "migrated"
	StatusLocked          TokenStatus = "locked"
	StatusWithdrawn       TokenStatus = "withdrawn"
	StatusHarvested       TokenStatus = "harvested"
	StatusMigrationFailed TokenStatus = "migration_failed"
)

// InProcess reports whether the token has already left the tradable
// bonding-curve phase, or is in the middle of leaving it. Curve-complete
// signals observed for such tokens are ignored.
func (s TokenStatus) InProcess() bool {
	switch s {
	case StatusMigrating, StatusMigrated, StatusLocked, StatusWithdrawn:
		return true
	}
	return false
}

// OffCurve reports whether trading has permanently moved off the bonding
// curve. Progress renders as pinned 100 for these states.
func (s TokenStatus) OffCurve() bool {
	return s == StatusMigrated || s == StatusLocked
}

// Token is the materialized per-mint state row. Reserve amounts are raw
// on-chain units: base token units for ReserveToken and lamports for
// ReserveLamport.
type Token struct {
	Mint           string
	Name           string
	Ticker         string
	Creator        string
	Status         TokenStatus
	ReserveToken   float64
	ReserveLamport float64
	Price          float64
	PriceUSD       float64
	SolPriceUSD    float64
	MarketCapUSD   float64
	Liquidity      float64
	CurveProgress  float64
	Volume24h      float64
	HolderCount    int
	Decimals       int
	TxID           string
	CreatedAt      time.Time
	LastUpdated    time.Time
}
