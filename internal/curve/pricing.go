// Package curve implements the bonding-curve pricing model: spot price,
// progress toward the migration threshold, liquidity valuation and the
// per-swap trade economics derived from program-reported reserves.
package curve

import (
	"math"

	"curve-engine/internal/domain"
)

// LamportsPerSOL converts raw lamport amounts to SOL.
const LamportsPerSOL = 1e9

// Params are the static curve parameters shared by all launches.
type Params struct {
	// VirtualReserveLamport is the synthetic SOL reserve a curve starts
	// with; real deposits accrue on top of it.
	VirtualReserveLamport float64
	// CurveLimitLamport is the SOL reserve at which the curve completes.
	CurveLimitLamport float64
	// TokenSupply is the total minted supply in base token units.
	TokenSupply float64
	// DefaultDecimals is used when a token's decimals are unknown.
	DefaultDecimals int
}

// DefaultParams mirror the launch program's deployed configuration.
func DefaultParams() Params {
	return Params{
		VirtualReserveLamport: 1_000_000_000,
		CurveLimitLamport:     113_000_000_000,
		TokenSupply:           1e15,
		DefaultDecimals:       6,
	}
}

// Decimals resolves a token's decimals, falling back to the default when
// the stored value is unset.
func (p Params) Decimals(d int) int {
	if d <= 0 {
		return p.DefaultDecimals
	}
	return d
}

// Price computes the spot price in SOL per whole token from raw reserves.
// Returns 0 when the token reserve is empty.
func Price(reserveLamport, reserveToken float64, decimals int) float64 {
	if reserveToken <= 0 {
		return 0
	}
	sol := reserveLamport / LamportsPerSOL
	tokens := reserveToken / math.Pow(10, float64(decimals))
	if tokens <= 0 {
		return 0
	}
	return sol / tokens
}

// Progress computes completion percent from the SOL reserve, net of the
// virtual reserve, clamped to [0, 100].
func (p Params) Progress(reserveLamport float64) float64 {
	denom := p.CurveLimitLamport - p.VirtualReserveLamport
	if denom <= 0 {
		return 0
	}
	pct := (reserveLamport - p.VirtualReserveLamport) / denom * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressFor is Progress with the off-curve pin: once a token has
// migrated or locked, progress renders as 100 regardless of reserves.
func (p Params) ProgressFor(status domain.TokenStatus, reserveLamport float64) float64 {
	if status.OffCurve() {
		return 100
	}
	return p.Progress(reserveLamport)
}

// Liquidity values both curve sides in USD: the SOL reserve at the SOL
// price plus the token reserve at the token price.
func Liquidity(reserveLamport, reserveToken float64, decimals int, solPriceUSD, tokenPriceUSD float64) float64 {
	solSide := reserveLamport / LamportsPerSOL * solPriceUSD
	tokenSide := reserveToken / math.Pow(10, float64(decimals)) * tokenPriceUSD
	return solSide + tokenSide
}

// MarketCapUSD values the full supply at the current token price.
func (p Params) MarketCapUSD(decimals int, tokenPriceUSD float64) float64 {
	return p.TokenSupply / math.Pow(10, float64(decimals)) * tokenPriceUSD
}

// SwapPrice computes the effective execution price in SOL per whole token
// for a single swap. For a buy, amountIn is lamports and amountOut base
// token units; for a sell the legs are reversed.
func SwapPrice(direction int, amountIn, amountOut float64, decimals int) float64 {
	var sol, tokens float64
	if direction == domain.DirectionBuy {
		sol = amountIn / LamportsPerSOL
		tokens = amountOut / math.Pow(10, float64(decimals))
	} else {
		sol = amountOut / LamportsPerSOL
		tokens = amountIn / math.Pow(10, float64(decimals))
	}
	if tokens <= 0 {
		return 0
	}
	return sol / tokens
}

// SwapVolumeUSD computes the token-leg USD notional of a swap. The token
// leg is amountOut for a buy and amountIn for a sell.
func SwapVolumeUSD(direction int, amountIn, amountOut float64, decimals int, tokenPriceUSD float64) float64 {
	leg := amountOut
	if direction == domain.DirectionSell {
		leg = amountIn
	}
	return leg / math.Pow(10, float64(decimals)) * tokenPriceUSD
}
