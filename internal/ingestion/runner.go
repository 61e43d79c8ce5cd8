package ingestion

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/holders"
)

// Runner sequences a full engine run: one backfill catch-up pass, then
// the live subscription, with an optional periodic holder sweep
// alongside.
type Runner struct {
	backfiller *Backfiller
	subscriber *Subscriber
	holders    *holders.Service
	sweepEvery time.Duration
	sweepBatch int
	log        zerolog.Logger
}

// RunnerOptions configure a Runner. Holders enables the periodic sweep;
// SweepInterval defaults to 5m and SweepBatch to 10.
type RunnerOptions struct {
	Holders       *holders.Service
	SweepInterval time.Duration
	SweepBatch    int
}

// NewRunner creates a runner.
func NewRunner(backfiller *Backfiller, subscriber *Subscriber, opts *RunnerOptions, log zerolog.Logger) *Runner {
	r := &Runner{
		backfiller: backfiller,
		subscriber: subscriber,
		sweepEvery: 5 * time.Minute,
		sweepBatch: 10,
		log:        log.With().Str("component", "runner").Logger(),
	}
	if opts != nil {
		r.holders = opts.Holders
		if opts.SweepInterval > 0 {
			r.sweepEvery = opts.SweepInterval
		}
		if opts.SweepBatch > 0 {
			r.sweepBatch = opts.SweepBatch
		}
	}
	return r
}

// Run blocks until the context ends. The backfill pass completes before
// the live subscription starts so replayed and live deliveries overlap
// instead of leaving a gap.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.backfiller.Run(ctx); err != nil {
		return err
	}

	if r.holders != nil {
		go r.sweepLoop(ctx)
	}

	return r.subscriber.Run(ctx)
}

// sweepLoop refreshes holder snapshots for recently traded tokens.
func (r *Runner) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			since := time.Now().Add(-r.sweepEvery)
			if err := r.holders.Sweep(ctx, since, r.sweepBatch); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("holder sweep failed")
			}
		}
	}
}
