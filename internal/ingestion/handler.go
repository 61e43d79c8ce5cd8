// Package ingestion turns Solana program logs into token state: the
// live subscriber and the backfill scanner both feed transaction logs
// into one Handler, which parses, prices and persists the resulting
// events. A transaction may be delivered by both paths or across
// restarts; state writes are last-write-wins safe and counting side
// effects run at most once per signature.
package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/cache"
	"curve-engine/internal/curve"
	"curve-engine/internal/domain"
	"curve-engine/internal/fanout"
	"curve-engine/internal/logparse"
	"curve-engine/internal/migration"
	"curve-engine/internal/observability"
	"curve-engine/internal/oracle"
	"curve-engine/internal/storage"
)

// Handler applies parsed transaction events to stores, caches and the
// fan-out bus.
type Handler struct {
	parser      *logparse.Parser
	tokens      storage.TokenStore
	checkpoints storage.CheckpointStore
	archive     storage.SwapArchive
	swaps       cache.SwapHistory
	emitter     fanout.Emitter
	prices      oracle.PriceSource
	migrator    migration.Migrator
	verifier    *migration.Verifier
	params      curve.Params
	log         zerolog.Logger
}

// HandlerOptions wires the handler's collaborators. Archive, Swaps,
// Emitter, Migrator and Verifier are optional; the corresponding side
// effects are skipped when nil.
type HandlerOptions struct {
	Parser      *logparse.Parser
	Tokens      storage.TokenStore
	Checkpoints storage.CheckpointStore
	Archive     storage.SwapArchive
	Swaps       cache.SwapHistory
	Emitter     fanout.Emitter
	Prices      oracle.PriceSource
	Migrator    migration.Migrator
	Verifier    *migration.Verifier
	Params      curve.Params
	Logger      zerolog.Logger
}

// NewHandler creates an event handler.
func NewHandler(opts HandlerOptions) *Handler {
	params := opts.Params
	if params.CurveLimitLamport == 0 {
		params = curve.DefaultParams()
	}
	return &Handler{
		parser:      opts.Parser,
		tokens:      opts.Tokens,
		checkpoints: opts.Checkpoints,
		archive:     opts.Archive,
		swaps:       opts.Swaps,
		emitter:     opts.Emitter,
		prices:      opts.Prices,
		migrator:    opts.Migrator,
		verifier:    opts.Verifier,
		params:      params,
		log:         opts.Logger.With().Str("component", "ingestion").Logger(),
	}
}

// HandleLogs processes one transaction's log output. Each recognized
// event is handled independently: a failure is logged and never aborts
// the remaining events or the caller's scan.
func (h *Handler) HandleLogs(ctx context.Context, slot int64, signature string, logs []string) {
	events := h.parser.Parse(logs, signature)

	for _, ev := range events {
		var err error
		switch ev.Kind {
		case domain.EventNewToken:
			err = h.handleNewToken(ctx, slot, ev)
		case domain.EventSwap:
			err = h.handleSwap(ctx, slot, ev)
		case domain.EventCurveComplete:
			err = h.handleCurveComplete(ctx, ev)
		}

		if err != nil {
			observability.RecordHandlerError(string(ev.Kind))
			h.log.Error().Err(err).
				Str("signature", signature).
				Str("kind", string(ev.Kind)).
				Int64("slot", slot).
				Msg("event handling failed")
			continue
		}
		observability.RecordEventProcessed(string(ev.Kind))
	}
}

// handleNewToken materializes the base token row. Reprocessing is a
// silent no-op; the launch notification fires only on first creation.
func (h *Handler) handleNewToken(ctx context.Context, slot int64, ev domain.TransactionEvent) error {
	now := time.Now().UTC()
	token := &domain.Token{
		Mint:        ev.NewToken.Mint,
		Creator:     ev.NewToken.Creator,
		Status:      domain.StatusActive,
		Decimals:    h.params.DefaultDecimals,
		TxID:        ev.Signature,
		CreatedAt:   now,
		LastUpdated: now,
	}

	created, err := h.tokens.Create(ctx, token)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	observability.DefaultMetrics.TokensCreated.Inc()
	h.emit(ctx, fanout.RoomGlobal, fanout.EventNewToken, token)
	h.log.Info().Str("mint", token.Mint).Str("creator", token.Creator).
		Int64("slot", slot).Msg("token created")
	return nil
}

// handleSwap reprices the token from program-reported reserves. State
// overwrites always run; volume counting, history append, archive insert
// and notifications run only for the delivery that claims the signature
// in the seen-transaction set.
func (h *Handler) handleSwap(ctx context.Context, slot int64, ev domain.TransactionEvent) error {
	swap := ev.Swap

	token, err := h.tokens.Get(ctx, swap.Mint)
	if errors.Is(err, storage.ErrNotFound) {
		// Swap for a token whose creation we never observed: materialize
		// a minimal active row and proceed
		token, err = h.ensureToken(ctx, swap.Mint, ev.Signature)
	}
	if err != nil {
		return err
	}
	if token.Status.OffCurve() {
		// Post-migration swaps route through the AMM, not the curve
		return nil
	}

	// Claim the signature up front: live delivery and a backfill pass
	// can hand over the same transaction concurrently, and the insert
	// is the only arbiter of which delivery counts.
	claimed, err := h.checkpoints.MarkTransactionSeen(ctx, ev.Signature)
	if err != nil {
		return err
	}

	solPrice, err := h.prices.SOLPrice(ctx)
	if err != nil {
		return err
	}

	decimals := h.params.Decimals(token.Decimals)
	price := curve.Price(swap.ReserveLamport, swap.ReserveToken, decimals)
	priceUSD := price * solPrice

	eco := storage.TokenEconomics{
		ReserveToken:   swap.ReserveToken,
		ReserveLamport: swap.ReserveLamport,
		Price:          price,
		PriceUSD:       priceUSD,
		SolPriceUSD:    solPrice,
		MarketCapUSD:   h.params.MarketCapUSD(decimals, priceUSD),
		Liquidity:      curve.Liquidity(swap.ReserveLamport, swap.ReserveToken, decimals, solPrice, priceUSD),
		CurveProgress:  h.params.ProgressFor(token.Status, swap.ReserveLamport),
		TxID:           ev.Signature,
		LastUpdated:    time.Now().UTC(),
	}
	if claimed {
		eco.VolumeDelta = curve.SwapVolumeUSD(swap.Direction, swap.AmountIn, swap.AmountOut, decimals, priceUSD)
	}

	if err := h.tokens.ApplySwap(ctx, swap.Mint, eco); err != nil {
		return err
	}

	if !claimed {
		observability.RecordDuplicateSkip()
		return nil
	}

	rec := &domain.SwapRecord{
		ID:        domain.SwapRecordID(ev.Signature, swap.Mint, 0),
		Mint:      swap.Mint,
		User:      swap.User,
		Direction: swap.Direction,
		AmountIn:  swap.AmountIn,
		AmountOut: swap.AmountOut,
		Price:     curve.SwapPrice(swap.Direction, swap.AmountIn, swap.AmountOut, decimals),
		PriceUSD:  priceUSD,
		TxID:      ev.Signature,
		Slot:      slot,
		Timestamp: time.Now().UTC(),
	}

	if h.archive != nil {
		if err := h.archive.Insert(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordCacheError("archive_insert")
			h.log.Warn().Err(err).Str("mint", swap.Mint).Msg("archive swap")
		}
	}
	if h.swaps != nil {
		if err := h.swaps.Push(ctx, swap.Mint, rec); err != nil {
			observability.RecordCacheError("swap_push")
			h.log.Warn().Err(err).Str("mint", swap.Mint).Msg("cache swap history")
		}
	}

	h.emit(ctx, fanout.RoomToken(swap.Mint), fanout.EventNewSwap, rec)
	h.emitTokenUpdate(ctx, swap.Mint)
	return nil
}

// handleCurveComplete drives the active -> migrating transition and
// hands the token to the migrator. A migration error leaves the token
// in migrating; the token never moves backwards.
func (h *Handler) handleCurveComplete(ctx context.Context, ev domain.TransactionEvent) error {
	mint := ev.CurveComplete.Mint

	token, err := h.tokens.Get(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		token, err = h.ensureToken(ctx, mint, ev.Signature)
	}
	if err != nil {
		return err
	}
	if token.Status.InProcess() {
		// Already migrating or past it; replays and duplicate signals
		// land here
		return nil
	}

	if h.verifier != nil {
		completed, err := h.verifier.Confirm(ctx, mint)
		if err != nil {
			return err
		}
		if !completed {
			h.log.Warn().Str("mint", mint).Msg("curve complete log not confirmed on chain")
			return nil
		}
	}

	moved, err := h.tokens.TransitionStatus(ctx, mint, domain.StatusMigrating, domain.StatusActive, domain.StatusPending)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	token.Status = domain.StatusMigrating
	h.emit(ctx, fanout.RoomToken(mint), fanout.EventTokenUpdate, token)
	h.emit(ctx, fanout.RoomGlobal, fanout.EventTokenUpdate, token)

	if h.migrator == nil {
		return nil
	}

	observability.DefaultMetrics.MigrationsTriggered.Inc()
	if err := h.migrator.MigrateToken(ctx, token); err != nil {
		// Fail stationary: stay in migrating for manual recovery
		observability.DefaultMetrics.MigrationsFailed.Inc()
		h.log.Error().Err(err).Str("mint", mint).Msg("migration failed, token left in migrating")
		return nil
	}

	h.log.Info().Str("mint", mint).Msg("migration triggered")
	return nil
}

// ensureToken creates a minimal active row for a mint observed mid-life.
func (h *Handler) ensureToken(ctx context.Context, mint, signature string) (*domain.Token, error) {
	now := time.Now().UTC()
	token := &domain.Token{
		Mint:        mint,
		Status:      domain.StatusActive,
		Decimals:    h.params.DefaultDecimals,
		TxID:        signature,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if _, err := h.tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	// Re-read: a concurrent creator may have won the insert
	return h.tokens.Get(ctx, mint)
}

func (h *Handler) emit(ctx context.Context, room, event string, payload any) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(ctx, room, event, payload)
	observability.RecordEmit(event)
}

// emitTokenUpdate pushes the freshly stored token row to its room.
func (h *Handler) emitTokenUpdate(ctx context.Context, mint string) {
	if h.emitter == nil {
		return
	}
	token, err := h.tokens.Get(ctx, mint)
	if err != nil {
		return
	}
	h.emit(ctx, fanout.RoomToken(mint), fanout.EventTokenUpdate, token)
}
