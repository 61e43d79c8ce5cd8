package migration

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/curve"
	"curve-engine/internal/solana"
)

// completedFlagOffset is the byte position of the is_completed flag in
// the bonding curve account: an 8-byte discriminator followed by two
// u64 reserve fields.
const completedFlagOffset = 24

// Verifier confirms a curve-complete log against the bonding curve
// account before the migration is triggered, guarding against forged or
// replayed log lines.
type Verifier struct {
	rpc       solana.RPCClient
	programID string
	retries   int
	delay     time.Duration
	log       zerolog.Logger
}

// VerifierOptions configure completion verification.
type VerifierOptions struct {
	// Retries is how many times a pending flag is re-read before giving
	// up. Defaults to 5.
	Retries int
	// Delay is the pause between retries. Defaults to 2s.
	Delay time.Duration
}

// NewVerifier creates a completion verifier.
func NewVerifier(rpc solana.RPCClient, programID string, opts *VerifierOptions, log zerolog.Logger) *Verifier {
	v := &Verifier{
		rpc:       rpc,
		programID: programID,
		retries:   5,
		delay:     2 * time.Second,
		log:       log.With().Str("component", "migration").Logger(),
	}
	if opts != nil {
		if opts.Retries > 0 {
			v.retries = opts.Retries
		}
		if opts.Delay > 0 {
			v.delay = opts.Delay
		}
	}
	return v
}

// Confirm derives the mint's bonding curve PDA and reads its completion
// flag, retrying while the account still reports an open curve. Returns
// false without error when the flag never flips within the retry budget.
func (v *Verifier) Confirm(ctx context.Context, mint string) (bool, error) {
	pda, err := curve.BondingCurveAddress(mint, v.programID)
	if err != nil {
		return false, fmt.Errorf("derive bonding curve address: %w", err)
	}

	for attempt := 0; attempt < v.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(v.delay):
			}
		}

		completed, err := v.readCompleted(ctx, pda)
		if err != nil {
			v.log.Warn().Err(err).Str("mint", mint).Int("attempt", attempt+1).
				Msg("read bonding curve account")
			continue
		}
		if completed {
			return true, nil
		}
	}

	return false, nil
}

func (v *Verifier) readCompleted(ctx context.Context, pda string) (bool, error) {
	info, err := v.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, fmt.Errorf("bonding curve account %s not found", pda)
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return false, fmt.Errorf("decode account data: %w", err)
	}
	if len(data) <= completedFlagOffset {
		return false, fmt.Errorf("account data too short: %d bytes", len(data))
	}

	return data[completedFlagOffset] == 1, nil
}
