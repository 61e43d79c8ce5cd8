package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/observability"
	"curve-engine/internal/solana"
	"curve-engine/internal/storage"
)

// Backfill defaults.
const (
	DefaultBackfillConcurrency = 20
	DefaultLookback            = 6 * time.Hour
	DefaultSlotWindow          = 500
)

// Backfiller scans the slot range between the stored checkpoint and the
// chain head and replays every launch-program transaction through the
// handler.
type Backfiller struct {
	rpc         solana.RPCClient
	handler     *Handler
	checkpoints storage.CheckpointStore
	concurrency int
	lookback    time.Duration
	slotWindow  int64
	log         zerolog.Logger
}

// BackfillOptions configure a Backfiller.
type BackfillOptions struct {
	// Concurrency bounds parallel block fetches. Defaults to 20.
	Concurrency int
	// Lookback is how far behind head the scan starts when no
	// checkpoint exists. Defaults to 6h.
	Lookback time.Duration
	// SlotWindow is the fixed fallback window when the head's block
	// time is unavailable. Defaults to 500 slots.
	SlotWindow int64
}

// NewBackfiller creates a backfill scanner.
func NewBackfiller(rpc solana.RPCClient, handler *Handler, checkpoints storage.CheckpointStore, opts *BackfillOptions, log zerolog.Logger) *Backfiller {
	b := &Backfiller{
		rpc:         rpc,
		handler:     handler,
		checkpoints: checkpoints,
		concurrency: DefaultBackfillConcurrency,
		lookback:    DefaultLookback,
		slotWindow:  DefaultSlotWindow,
		log:         log.With().Str("component", "backfill").Logger(),
	}
	if opts != nil {
		if opts.Concurrency > 0 {
			b.concurrency = opts.Concurrency
		}
		if opts.Lookback > 0 {
			b.lookback = opts.Lookback
		}
		if opts.SlotWindow > 0 {
			b.slotWindow = opts.SlotWindow
		}
	}
	return b
}

// Result summarizes one backfill pass.
type Result struct {
	StartSlot    int64
	HeadSlot     int64
	SlotsScanned int
	SlotsSkipped int
}

// Run performs one catch-up pass. The checkpoint advances to the head
// observed at the start of the pass, exactly once, after every queued
// slot has drained. Individual slot failures are skipped; their work is
// reattempted only if the process dies before the checkpoint write.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	head, err := b.rpc.GetSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("get head slot: %w", err)
	}

	start, err := b.startSlot(ctx, head)
	if err != nil {
		return nil, err
	}

	result := &Result{StartSlot: start, HeadSlot: head}
	if start >= head {
		b.log.Info().Int64("head", head).Msg("checkpoint at head, nothing to backfill")
		return result, nil
	}

	slots, err := b.rpc.GetBlocks(ctx, start+1, head)
	if err != nil {
		return nil, fmt.Errorf("get blocks %d..%d: %w", start+1, head, err)
	}

	b.log.Info().Int64("from", start+1).Int64("to", head).Int("slots", len(slots)).
		Msg("backfill pass started")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		jobs    = make(chan int64)
		skipped int
	)

	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range jobs {
				if err := b.processSlot(ctx, slot); err != nil {
					observability.DefaultMetrics.SlotsSkipped.Inc()
					b.log.Warn().Err(err).Int64("slot", slot).Msg("slot skipped")
					mu.Lock()
					skipped++
					mu.Unlock()
				}
				observability.DefaultMetrics.SlotsScanned.Inc()
			}
		}()
	}

	drained := true
	for _, slot := range slots {
		select {
		case <-ctx.Done():
			drained = false
		case jobs <- slot:
		}
		if !drained {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if !drained {
		return nil, ctx.Err()
	}

	result.SlotsScanned = len(slots)
	result.SlotsSkipped = skipped

	// Single checkpoint write per pass, only after the queue drained
	if err := b.checkpoints.SetLastProcessedSlot(ctx, head); err != nil {
		return result, fmt.Errorf("advance checkpoint: %w", err)
	}
	observability.UpdateCheckpointSlot(head)
	observability.DefaultMetrics.BackfillDuration.Observe(time.Since(started).Seconds())

	b.log.Info().Int64("checkpoint", head).Int("scanned", len(slots)).Int("skipped", skipped).
		Dur("took", time.Since(started)).Msg("backfill pass finished")
	return result, nil
}

// startSlot resolves where the scan begins: the stored checkpoint, or on
// first run a slot roughly lookback behind head found by binary search,
// or a fixed window when the head carries no block time.
func (b *Backfiller) startSlot(ctx context.Context, head int64) (int64, error) {
	slot, err := b.checkpoints.LastProcessedSlot(ctx)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	headTime, err := b.rpc.GetBlockTime(ctx, head)
	if err != nil || headTime == nil {
		start := head - b.slotWindow
		if start < 0 {
			start = 0
		}
		b.log.Warn().Int64("start", start).
			Msg("head block time unavailable, using fixed slot window")
		return start, nil
	}

	target := *headTime - int64(b.lookback.Seconds())
	start, err := FindSlotAtOrBeforeTime(ctx, b.rpc, target, 0, head)
	if err != nil {
		return 0, fmt.Errorf("resolve lookback slot: %w", err)
	}
	return start, nil
}

// processSlot fetches one block and feeds its launch-program
// transactions to the handler. Failed transactions and foreign programs
// are filtered here so the handler only sees relevant logs.
func (b *Backfiller) processSlot(ctx context.Context, slot int64) error {
	block, err := b.rpc.GetBlock(ctx, slot)
	if err != nil {
		return err
	}
	if block == nil {
		return nil
	}

	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if tx.Failed() {
			continue
		}
		logs := tx.Logs()
		if !b.handler.parser.MatchesProgram(logs) {
			continue
		}
		b.handler.HandleLogs(ctx, slot, tx.Signature, logs)
	}
	return nil
}

// FindSlotAtOrBeforeTime binary-searches [low, high] for the greatest
// slot whose block time is at or before target. The midpoint is biased
// upward so the search can terminate with low == high; slots without a
// block time are treated as being after the target.
func FindSlotAtOrBeforeTime(ctx context.Context, rpc solana.RPCClient, target, low, high int64) (int64, error) {
	for low < high {
		mid := (low + high + 1) / 2

		t, err := rpc.GetBlockTime(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("get block time for slot %d: %w", mid, err)
		}

		if t == nil || *t > target {
			high = mid - 1
		} else {
			low = mid
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
	}
	return low, nil
}
