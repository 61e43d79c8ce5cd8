package domain

import "time"

// EventKind discriminates the payload of a TransactionEvent.
type EventKind string

const (
	EventSwap          EventKind = "swap"
	EventNewToken      EventKind = "newToken"
	EventCurveComplete EventKind = "curveComplete"
)

// SwapDetails carries the fields extracted from one swap's log lines.
// Reserve values are the post-swap reserves reported by the program.
type SwapDetails struct {
	Mint           string
	User           string
	Direction      int
	AmountIn       float64
	AmountOut      float64
	ReserveToken   float64
	ReserveLamport float64
	FeeLamport     float64
}

// NewTokenDetails carries the fields of a token creation event.
type NewTokenDetails struct {
	Mint    string
	Creator string
}

// CurveCompleteDetails marks a bonding curve reaching its limit.
type CurveCompleteDetails struct {
	Mint string
}

// TransactionEvent is one domain event recognized in a transaction's log
// output. Exactly one of the detail pointers matching Kind is set.
type TransactionEvent struct {
	Kind          EventKind
	Signature     string
	Swap          *SwapDetails
	NewToken      *NewTokenDetails
	CurveComplete *CurveCompleteDetails
}

// TokenHolder is one row of a holder snapshot.
type TokenHolder struct {
	Address    string
	Amount     float64
	Percentage float64
}

// HolderSnapshot is a full rebuild of a token's holder distribution at a
// point in time. Holders are sorted by balance descending and capped.
type HolderSnapshot struct {
	Mint      string
	Holders   []TokenHolder
	Total     float64
	UpdatedAt time.Time
}
