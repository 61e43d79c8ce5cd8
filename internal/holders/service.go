// Package holders maintains per-token holder snapshots. A snapshot is a
// full rebuild from an on-chain token account scan; percentages are
// always computed against the snapshot's own total so they sum to 100
// even while the scan races live trading.
package holders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/cache"
	"curve-engine/internal/domain"
	"curve-engine/internal/fanout"
	"curve-engine/internal/observability"
	"curve-engine/internal/solana"
	"curve-engine/internal/storage"
)

// Defaults for snapshot behavior.
const (
	DefaultMaxHolders = 500
	DefaultStaleness  = 5 * time.Minute
)

// Service builds, caches and serves holder snapshots.
type Service struct {
	rpc        solana.RPCClient
	cache      cache.HolderCache
	tokens     storage.TokenStore
	emitter    fanout.Emitter
	maxHolders int
	staleness  time.Duration
	log        zerolog.Logger

	// inflight guards against concurrent rebuilds of the same mint
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// Options configure the holder service.
type Options struct {
	// MaxHolders caps how many holders a snapshot retains. Defaults to
	// DefaultMaxHolders.
	MaxHolders int
	// Staleness is the snapshot age beyond which reads trigger a
	// background refresh. Defaults to DefaultStaleness.
	Staleness time.Duration
}

// NewService creates a holder snapshot service. The emitter may be nil
// when no fan-out is wanted.
func NewService(rpc solana.RPCClient, holderCache cache.HolderCache, tokens storage.TokenStore, emitter fanout.Emitter, opts *Options, log zerolog.Logger) *Service {
	s := &Service{
		rpc:        rpc,
		cache:      holderCache,
		tokens:     tokens,
		emitter:    emitter,
		maxHolders: DefaultMaxHolders,
		staleness:  DefaultStaleness,
		log:        log.With().Str("component", "holders").Logger(),
		inflight:   make(map[string]struct{}),
	}
	if opts != nil {
		if opts.MaxHolders > 0 {
			s.maxHolders = opts.MaxHolders
		}
		if opts.Staleness > 0 {
			s.staleness = opts.Staleness
		}
	}
	return s
}

// Refresh rebuilds the mint's snapshot from chain, replaces the cached
// copy wholesale and updates the token's holder count. Returns the
// holder count.
func (s *Service) Refresh(ctx context.Context, mint string) (int, error) {
	observability.DefaultMetrics.HolderScans.Inc()

	accounts, err := s.rpc.GetTokenAccountsByMint(ctx, mint)
	if err != nil {
		observability.DefaultMetrics.HolderErrors.Inc()
		return 0, err
	}

	// Aggregate by owner; a wallet can hold several token accounts
	byOwner := make(map[string]float64)
	var total float64
	for _, acct := range accounts {
		if acct.Amount <= 0 {
			continue
		}
		byOwner[acct.Owner] += acct.Amount
		total += acct.Amount
	}

	holders := make([]domain.TokenHolder, 0, len(byOwner))
	for owner, amount := range byOwner {
		pct := 0.0
		if total > 0 {
			pct = amount / total * 100
		}
		holders = append(holders, domain.TokenHolder{
			Address:    owner,
			Amount:     amount,
			Percentage: pct,
		})
	}

	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Amount != holders[j].Amount {
			return holders[i].Amount > holders[j].Amount
		}
		return holders[i].Address < holders[j].Address
	})

	count := len(holders)
	if count > s.maxHolders {
		holders = holders[:s.maxHolders]
	}

	snap := &domain.HolderSnapshot{
		Mint:      mint,
		Holders:   holders,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, mint, snap); err != nil {
		s.log.Warn().Err(err).Str("mint", mint).Msg("cache holder snapshot")
	}

	if err := s.tokens.SetHolderCount(ctx, mint, count); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Err(err).Str("mint", mint).Msg("store holder count")
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, fanout.RoomToken(mint), fanout.EventHolders, snap)
	}

	return count, nil
}

// Read returns the cached snapshot. A stale or missing snapshot kicks
// off a background refresh; the stale copy (or nil) is returned
// immediately rather than blocking the caller on a chain scan.
func (s *Service) Read(ctx context.Context, mint string) (*domain.HolderSnapshot, error) {
	snap, err := s.cache.Get(ctx, mint)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}

	if snap == nil || time.Since(snap.UpdatedAt) > s.staleness {
		s.refreshAsync(mint)
	}
	return snap, nil
}

// refreshAsync rebuilds in the background, deduplicating concurrent
// requests for the same mint.
func (s *Service) refreshAsync(mint string) {
	s.inflightMu.Lock()
	if _, busy := s.inflight[mint]; busy {
		s.inflightMu.Unlock()
		return
	}
	s.inflight[mint] = struct{}{}
	s.inflightMu.Unlock()

	go func() {
		defer func() {
			s.inflightMu.Lock()
			delete(s.inflight, mint)
			s.inflightMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := s.Refresh(ctx, mint); err != nil {
			s.log.Warn().Err(err).Str("mint", mint).Msg("background holder refresh failed")
		}
	}()
}

// Sweep refreshes snapshots for every token traded since the cutoff, in
// batches so a busy market does not fan out unbounded RPC scans.
func (s *Service) Sweep(ctx context.Context, since time.Time, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 10
	}

	mints, err := s.tokens.RecentlyTraded(ctx, since)
	if err != nil {
		return err
	}

	for start := 0; start < len(mints); start += batchSize {
		end := start + batchSize
		if end > len(mints) {
			end = len(mints)
		}

		var wg sync.WaitGroup
		for _, mint := range mints[start:end] {
			wg.Add(1)
			go func(mint string) {
				defer wg.Done()
				if _, err := s.Refresh(ctx, mint); err != nil {
					s.log.Warn().Err(err).Str("mint", mint).Msg("sweep refresh failed")
				}
			}(mint)
		}
		wg.Wait()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
