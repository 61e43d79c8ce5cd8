// Package logparse classifies Solana program log output into domain
// events. Extraction is positional: field values are taken from fixed
// offsets within whitespace-split log lines, then validated before an
// event is emitted. A transaction that fails validation produces no event
// and never stops processing of its neighbors.
package logparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"curve-engine/internal/domain"
	"curve-engine/internal/observability"
)

// Log line markers written by the launch program.
const (
	markerMint          = "Mint:"
	markerSwap          = "Swap:"
	markerReserves      = "Reserves:"
	markerFee           = "fee:"
	markerSwapEvent     = "SwapEvent:"
	markerNewToken      = "NewToken:"
	markerCurveComplete = "curve is completed"
	markerSuccess       = "success"
)

// base58Pattern matches the Bitcoin base58 alphabet (no 0, O, I, l).
var base58Pattern = regexp.MustCompile(`^[123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz]+$`)

// placeholderSignature matches the all-ones signature some RPC nodes
// report for vote or skipped transactions.
var placeholderSignature = regexp.MustCompile(`^1+$`)

// punctStripper removes the quote, comma and paren characters that leak
// into log fields from the program's formatted output.
var punctStripper = strings.NewReplacer(`"`, "", ",", "", ")", "")

// Parser recognizes launch-program events in transaction logs.
type Parser struct {
	programID string
	log       zerolog.Logger
}

func New(programID string, log zerolog.Logger) *Parser {
	return &Parser{
		programID: programID,
		log:       log.With().Str("component", "logparse").Logger(),
	}
}

// MatchesProgram reports whether any log line mentions the launch program.
func (p *Parser) MatchesProgram(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, p.programID) {
			return true
		}
	}
	return false
}

// Parse extracts every recognizable event from one transaction's logs.
// Malformed candidates are logged and skipped; the returned slice holds
// only fully validated events.
func (p *Parser) Parse(logs []string, signature string) []domain.TransactionEvent {
	if signature == "" || placeholderSignature.MatchString(signature) {
		return nil
	}

	var events []domain.TransactionEvent

	if ev, ok := p.parseNewToken(logs, signature); ok {
		events = append(events, ev)
	}
	if ev, ok := p.parseSwap(logs, signature); ok {
		events = append(events, ev)
	}
	if ev, ok := p.parseCurveComplete(logs, signature); ok {
		events = append(events, ev)
	}

	return events
}

// parseSwap requires the full marker set plus a success line. Field
// positions follow the program's log format:
//
//	"... Swap: <user> <direction> <amountIn>"   last three fields
//	"... Reserves: <token> <lamport>"           last two fields
//	"... SwapEvent: ... <amountOut>"            last of the final three
func (p *Parser) parseSwap(logs []string, signature string) (domain.TransactionEvent, bool) {
	swapLine := findLine(logs, markerSwap)
	reservesLine := findLine(logs, markerReserves)
	feeLine := findLine(logs, markerFee)
	eventLine := findLine(logs, markerSwapEvent)
	mintLine := findLine(logs, markerMint)
	if swapLine == "" || reservesLine == "" || feeLine == "" || eventLine == "" || mintLine == "" {
		return domain.TransactionEvent{}, false
	}
	if findLine(logs, markerSuccess) == "" {
		return domain.TransactionEvent{}, false
	}

	mint, ok := p.extractAddress(mintLine, markerMint, signature)
	if !ok {
		return domain.TransactionEvent{}, false
	}

	swapFields := lastFields(swapLine, 3)
	if swapFields == nil {
		p.dropped(signature, "short swap line")
		return domain.TransactionEvent{}, false
	}
	user := punctStripper.Replace(swapFields[0])
	if !validAddress(user) {
		p.dropped(signature, "invalid user address")
		return domain.TransactionEvent{}, false
	}
	direction, err := strconv.Atoi(punctStripper.Replace(swapFields[1]))
	if err != nil || (direction != domain.DirectionBuy && direction != domain.DirectionSell) {
		p.dropped(signature, "invalid swap direction")
		return domain.TransactionEvent{}, false
	}
	amountIn, err := parseAmount(swapFields[2])
	if err != nil {
		p.dropped(signature, "invalid amountIn")
		return domain.TransactionEvent{}, false
	}

	reserveFields := lastFields(reservesLine, 2)
	if reserveFields == nil {
		p.dropped(signature, "short reserves line")
		return domain.TransactionEvent{}, false
	}
	reserveToken, err := parseAmount(reserveFields[0])
	if err != nil {
		p.dropped(signature, "invalid token reserve")
		return domain.TransactionEvent{}, false
	}
	reserveLamport, err := parseAmount(reserveFields[1])
	if err != nil {
		p.dropped(signature, "invalid lamport reserve")
		return domain.TransactionEvent{}, false
	}

	eventFields := lastFields(eventLine, 3)
	if eventFields == nil {
		p.dropped(signature, "short swap event line")
		return domain.TransactionEvent{}, false
	}
	amountOut, err := parseAmount(eventFields[2])
	if err != nil {
		p.dropped(signature, "invalid amountOut")
		return domain.TransactionEvent{}, false
	}

	fee, err := parseAmount(strings.TrimSpace(afterMarker(feeLine, markerFee)))
	if err != nil {
		p.dropped(signature, "invalid fee")
		return domain.TransactionEvent{}, false
	}

	return domain.TransactionEvent{
		Kind:      domain.EventSwap,
		Signature: signature,
		Swap: &domain.SwapDetails{
			Mint:           mint,
			User:           user,
			Direction:      direction,
			AmountIn:       amountIn,
			AmountOut:      amountOut,
			ReserveToken:   reserveToken,
			ReserveLamport: reserveLamport,
			FeeLamport:     fee,
		},
	}, true
}

// parseNewToken reads "... NewToken: <mint> <creator>" from the last two
// fields of the marker line.
func (p *Parser) parseNewToken(logs []string, signature string) (domain.TransactionEvent, bool) {
	line := findLine(logs, markerNewToken)
	if line == "" {
		return domain.TransactionEvent{}, false
	}

	fields := lastFields(line, 2)
	if fields == nil {
		p.dropped(signature, "short new token line")
		return domain.TransactionEvent{}, false
	}
	mint := punctStripper.Replace(fields[0])
	creator := punctStripper.Replace(fields[1])
	if !validAddress(mint) || !validAddress(creator) {
		p.dropped(signature, "invalid new token addresses")
		return domain.TransactionEvent{}, false
	}

	return domain.TransactionEvent{
		Kind:      domain.EventNewToken,
		Signature: signature,
		NewToken:  &domain.NewTokenDetails{Mint: mint, Creator: creator},
	}, true
}

func (p *Parser) parseCurveComplete(logs []string, signature string) (domain.TransactionEvent, bool) {
	if findLine(logs, markerCurveComplete) == "" {
		return domain.TransactionEvent{}, false
	}
	mintLine := findLine(logs, markerMint)
	if mintLine == "" {
		p.dropped(signature, "curve complete without mint line")
		return domain.TransactionEvent{}, false
	}
	mint, ok := p.extractAddress(mintLine, markerMint, signature)
	if !ok {
		return domain.TransactionEvent{}, false
	}

	return domain.TransactionEvent{
		Kind:          domain.EventCurveComplete,
		Signature:     signature,
		CurveComplete: &domain.CurveCompleteDetails{Mint: mint},
	}, true
}

func (p *Parser) extractAddress(line, marker, signature string) (string, bool) {
	addr := punctStripper.Replace(strings.TrimSpace(afterMarker(line, marker)))
	if i := strings.IndexByte(addr, ' '); i >= 0 {
		addr = addr[:i]
	}
	if !validAddress(addr) {
		p.dropped(signature, "invalid address after "+marker)
		return "", false
	}
	return addr, true
}

func (p *Parser) dropped(signature, reason string) {
	observability.DefaultMetrics.EventsDropped.Inc()
	p.log.Debug().Str("signature", signature).Str("reason", reason).Msg("dropped malformed event")
}

// findLine returns the first log line containing marker, or "".
func findLine(logs []string, marker string) string {
	for _, line := range logs {
		if strings.Contains(line, marker) {
			return line
		}
	}
	return ""
}

// afterMarker returns the part of line following the first occurrence of
// marker.
func afterMarker(line, marker string) string {
	i := strings.Index(line, marker)
	if i < 0 {
		return ""
	}
	return line[i+len(marker):]
}

// lastFields returns the last n whitespace-separated fields of line, or
// nil when the line is too short.
func lastFields(line string, n int) []string {
	fields := strings.Fields(line)
	if len(fields) < n {
		return nil
	}
	return fields[len(fields)-n:]
}

// validAddress checks base58 alphabet membership and plausible pubkey
// length.
func validAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	return base58Pattern.MatchString(s)
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(punctStripper.Replace(s), 64)
}
