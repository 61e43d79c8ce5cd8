package logparse

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"curve-engine/internal/domain"
	"curve-engine/internal/observability"
)

const (
	testProgramID = "CurveLaunchandswap11111111111111111111111111"
	testMint      = "So11111111111111111111111111111111111111112"
	testUser      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	testCreator   = "Vote111111111111111111111111111111111111111"
	testSig       = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp"
)

func newTestParser() *Parser {
	return New(testProgramID, zerolog.Nop())
}

func swapLogs() []string {
	return []string{
		"Program " + testProgramID + " invoke [1]",
		"Program log: Mint: " + testMint,
		"Program log: Swap: " + testUser + " 0 1000000000",
		"Program log: Reserves: 950000000000000, 13000000000",
		"Program log: fee: 10000000",
		"Program data: SwapEvent: " + testMint + " 1000000000 50000000000",
		"Program " + testProgramID + " success",
	}
}

func TestParse_Swap(t *testing.T) {
	p := newTestParser()

	events := p.Parse(swapLogs(), testSig)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.Kind != domain.EventSwap {
		t.Fatalf("expected swap event, got %s", ev.Kind)
	}
	if ev.Signature != testSig {
		t.Errorf("signature mismatch: %s", ev.Signature)
	}

	s := ev.Swap
	if s.Mint != testMint {
		t.Errorf("mint mismatch: %s", s.Mint)
	}
	if s.User != testUser {
		t.Errorf("user mismatch: %s", s.User)
	}
	if s.Direction != domain.DirectionBuy {
		t.Errorf("expected buy, got %d", s.Direction)
	}
	if s.AmountIn != 1000000000 {
		t.Errorf("amountIn mismatch: %v", s.AmountIn)
	}
	if s.AmountOut != 50000000000 {
		t.Errorf("amountOut mismatch: %v", s.AmountOut)
	}
	if s.ReserveToken != 950000000000000 {
		t.Errorf("token reserve mismatch: %v", s.ReserveToken)
	}
	if s.ReserveLamport != 13000000000 {
		t.Errorf("lamport reserve mismatch: %v", s.ReserveLamport)
	}
	if s.FeeLamport != 10000000 {
		t.Errorf("fee mismatch: %v", s.FeeLamport)
	}
}

func TestParse_SwapSellDirection(t *testing.T) {
	p := newTestParser()

	logs := swapLogs()
	logs[2] = "Program log: Swap: " + testUser + " 1 50000000000"

	events := p.Parse(logs, testSig)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Swap.Direction != domain.DirectionSell {
		t.Errorf("expected sell, got %d", events[0].Swap.Direction)
	}
}

func TestParse_SwapRequiresSuccess(t *testing.T) {
	p := newTestParser()

	logs := swapLogs()
	logs[6] = "Program " + testProgramID + " failed: custom program error"

	if events := p.Parse(logs, testSig); len(events) != 0 {
		t.Errorf("expected no events without success line, got %d", len(events))
	}
}

func TestParse_SwapMissingMarker(t *testing.T) {
	p := newTestParser()

	for drop := 1; drop <= 5; drop++ {
		logs := swapLogs()
		logs[drop] = "Program log: something else"

		if events := p.Parse(logs, testSig); len(events) != 0 {
			t.Errorf("dropping line %d: expected no events, got %d", drop, len(events))
		}
	}
}

func TestParse_SwapBadDirection(t *testing.T) {
	p := newTestParser()

	logs := swapLogs()
	logs[2] = "Program log: Swap: " + testUser + " 7 1000000000"

	if events := p.Parse(logs, testSig); len(events) != 0 {
		t.Errorf("expected no events for direction 7, got %d", len(events))
	}
}

func TestParse_SwapInvalidUser(t *testing.T) {
	p := newTestParser()

	logs := swapLogs()
	logs[2] = "Program log: Swap: notanaddress 0 1000000000"

	if events := p.Parse(logs, testSig); len(events) != 0 {
		t.Errorf("expected no events for invalid user, got %d", len(events))
	}
}

func TestParse_PunctuationStripped(t *testing.T) {
	p := newTestParser()

	logs := []string{
		`Program log: Mint: "` + testMint + `",`,
		`Program log: Swap: "` + testUser + `", 0, 1000000000)`,
		"Program log: Reserves: 950000000000000, 13000000000)",
		"Program log: fee: 10000000,",
		"Program data: SwapEvent: x 1000000000 50000000000)",
		"Program " + testProgramID + " success",
	}

	events := p.Parse(logs, testSig)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Swap.Mint != testMint {
		t.Errorf("mint not stripped: %q", events[0].Swap.Mint)
	}
	if events[0].Swap.User != testUser {
		t.Errorf("user not stripped: %q", events[0].Swap.User)
	}
	if events[0].Swap.AmountOut != 50000000000 {
		t.Errorf("amountOut mismatch: %v", events[0].Swap.AmountOut)
	}
}

func TestParse_NewToken(t *testing.T) {
	p := newTestParser()

	logs := []string{
		"Program " + testProgramID + " invoke [1]",
		"Program log: NewToken: " + testMint + " " + testCreator,
		"Program " + testProgramID + " success",
	}

	events := p.Parse(logs, testSig)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.Kind != domain.EventNewToken {
		t.Fatalf("expected newToken event, got %s", ev.Kind)
	}
	if ev.NewToken.Mint != testMint {
		t.Errorf("mint mismatch: %s", ev.NewToken.Mint)
	}
	if ev.NewToken.Creator != testCreator {
		t.Errorf("creator mismatch: %s", ev.NewToken.Creator)
	}
}

func TestParse_NewTokenInvalidAddress(t *testing.T) {
	p := newTestParser()

	logs := []string{
		"Program log: NewToken: short " + testCreator,
	}

	if events := p.Parse(logs, testSig); len(events) != 0 {
		t.Errorf("expected no events for bad mint, got %d", len(events))
	}
}

func TestParse_CurveComplete(t *testing.T) {
	p := newTestParser()

	logs := []string{
		"Program log: Mint: " + testMint,
		"Program log: curve is completed",
	}

	events := p.Parse(logs, testSig)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Kind != domain.EventCurveComplete {
		t.Fatalf("expected curveComplete event, got %s", events[0].Kind)
	}
	if events[0].CurveComplete.Mint != testMint {
		t.Errorf("mint mismatch: %s", events[0].CurveComplete.Mint)
	}
}

func TestParse_CurveCompleteWithoutMint(t *testing.T) {
	p := newTestParser()

	logs := []string{
		"Program log: curve is completed",
	}

	if events := p.Parse(logs, testSig); len(events) != 0 {
		t.Errorf("expected no events without mint line, got %d", len(events))
	}
}

func TestParse_PlaceholderSignature(t *testing.T) {
	p := newTestParser()

	if events := p.Parse(swapLogs(), "1111111111111111111111111111111111111111"); len(events) != 0 {
		t.Errorf("expected no events for placeholder signature, got %d", len(events))
	}
	if events := p.Parse(swapLogs(), ""); len(events) != 0 {
		t.Errorf("expected no events for empty signature, got %d", len(events))
	}
}

func TestParse_MalformedEventCounted(t *testing.T) {
	p := newTestParser()

	before := testutil.ToFloat64(observability.DefaultMetrics.EventsDropped)

	logs := swapLogs()
	logs[2] = "Program log: Swap: " + testUser + " notadirection 1000000000"
	if events := p.Parse(logs, testSig); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}

	after := testutil.ToFloat64(observability.DefaultMetrics.EventsDropped)
	if after != before+1 {
		t.Errorf("expected dropped counter to advance by 1, got %v -> %v", before, after)
	}
}

func TestMatchesProgram(t *testing.T) {
	p := newTestParser()

	if !p.MatchesProgram([]string{"Program " + testProgramID + " invoke [1]"}) {
		t.Error("expected match for own program")
	}
	if p.MatchesProgram([]string{"Program SomeOtherProgram invoke [1]"}) {
		t.Error("expected no match for foreign program")
	}
}
