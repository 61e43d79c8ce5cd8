package curve

import (
	"math"
	"testing"

	"curve-engine/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrice(t *testing.T) {
	// 10 SOL against 1,000,000 whole tokens (decimals 6)
	price := Price(10*LamportsPerSOL, 1_000_000*1e6, 6)
	if !almostEqual(price, 0.00001) {
		t.Errorf("expected 0.00001, got %v", price)
	}
}

func TestPrice_EmptyReserve(t *testing.T) {
	if p := Price(10*LamportsPerSOL, 0, 6); p != 0 {
		t.Errorf("expected 0 for empty token reserve, got %v", p)
	}
	if p := Price(10*LamportsPerSOL, -5, 6); p != 0 {
		t.Errorf("expected 0 for negative token reserve, got %v", p)
	}
}

func TestProgress_Midpoint(t *testing.T) {
	p := DefaultParams()

	// Halfway between virtual reserve (1 SOL) and limit (113 SOL)
	got := p.Progress(57_000_000_000)
	if !almostEqual(got, 50.0) {
		t.Errorf("expected 50.0, got %v", got)
	}
}

func TestProgress_Clamped(t *testing.T) {
	p := DefaultParams()

	if got := p.Progress(0); got != 0 {
		t.Errorf("below virtual reserve should clamp to 0, got %v", got)
	}
	if got := p.Progress(500_000_000_000); got != 100 {
		t.Errorf("above limit should clamp to 100, got %v", got)
	}
}

func TestProgressFor_OffCurvePin(t *testing.T) {
	p := DefaultParams()

	// Reserves no longer matter once trading left the curve
	if got := p.ProgressFor(domain.StatusMigrated, 0); got != 100 {
		t.Errorf("migrated should pin to 100, got %v", got)
	}
	if got := p.ProgressFor(domain.StatusLocked, 2_000_000_000); got != 100 {
		t.Errorf("locked should pin to 100, got %v", got)
	}
	if got := p.ProgressFor(domain.StatusActive, 57_000_000_000); !almostEqual(got, 50.0) {
		t.Errorf("active should compute from reserves, got %v", got)
	}
}

func TestLiquidity(t *testing.T) {
	// 10 SOL at $100 plus 1,000,000 tokens at $0.001
	got := Liquidity(10*LamportsPerSOL, 1_000_000*1e6, 6, 100, 0.001)
	if !almostEqual(got, 2000) {
		t.Errorf("expected 2000, got %v", got)
	}
}

func TestMarketCapUSD(t *testing.T) {
	p := DefaultParams()

	// 1e15 base units at decimals 6 is 1e9 whole tokens
	got := p.MarketCapUSD(6, 0.0001)
	if !almostEqual(got, 100_000) {
		t.Errorf("expected 100000, got %v", got)
	}
}

func TestSwapPrice(t *testing.T) {
	// Buy: 1 SOL in, 100,000 whole tokens out
	buy := SwapPrice(domain.DirectionBuy, 1*LamportsPerSOL, 100_000*1e6, 6)
	if !almostEqual(buy, 0.00001) {
		t.Errorf("buy: expected 0.00001, got %v", buy)
	}

	// Sell: 100,000 whole tokens in, 1 SOL out; same effective price
	sell := SwapPrice(domain.DirectionSell, 100_000*1e6, 1*LamportsPerSOL, 6)
	if !almostEqual(sell, 0.00001) {
		t.Errorf("sell: expected 0.00001, got %v", sell)
	}
}

func TestSwapPrice_ZeroTokenLeg(t *testing.T) {
	if got := SwapPrice(domain.DirectionBuy, 1*LamportsPerSOL, 0, 6); got != 0 {
		t.Errorf("expected 0 for zero token leg, got %v", got)
	}
}

func TestSwapVolumeUSD_TokenLeg(t *testing.T) {
	// The token leg is amountOut for a buy and amountIn for a sell.
	buy := SwapVolumeUSD(domain.DirectionBuy, 1*LamportsPerSOL, 50_000*1e6, 6, 0.002)
	if !almostEqual(buy, 100) {
		t.Errorf("buy volume: expected 100, got %v", buy)
	}

	sell := SwapVolumeUSD(domain.DirectionSell, 50_000*1e6, 1*LamportsPerSOL, 6, 0.002)
	if !almostEqual(sell, 100) {
		t.Errorf("sell volume: expected 100, got %v", sell)
	}
}

func TestDecimals_Fallback(t *testing.T) {
	p := DefaultParams()

	if got := p.Decimals(0); got != 6 {
		t.Errorf("expected default 6, got %d", got)
	}
	if got := p.Decimals(9); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
}
