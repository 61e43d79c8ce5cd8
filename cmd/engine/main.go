package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/cache"
	"curve-engine/internal/config"
	"curve-engine/internal/curve"
	"curve-engine/internal/fanout"
	"curve-engine/internal/holders"
	"curve-engine/internal/ingestion"
	"curve-engine/internal/logparse"
	"curve-engine/internal/migration"
	"curve-engine/internal/observability"
	"curve-engine/internal/oracle"
	"curve-engine/internal/solana"
	"curve-engine/internal/storage"
	chstore "curve-engine/internal/storage/clickhouse"
	"curve-engine/internal/storage/memory"
	"curve-engine/internal/storage/migrations"
	pgstore "curve-engine/internal/storage/postgres"
)

func main() {
	mode := flag.String("mode", "live", "Run mode: live, backfill, or holders")
	mint := flag.String("mint", "", "Mint address for mode=holders")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and caches")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}

	logger := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	switch *mode {
	case "live":
		err = runLive(ctx, cfg, *useMemory, logger)
	case "backfill":
		err = runBackfill(ctx, cfg, *useMemory, logger)
	case "holders":
		err = runHolders(ctx, cfg, *mint, *useMemory, logger)
	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode")
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("engine exited with error")
	}
	logger.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// deps bundles everything the run modes share.
type deps struct {
	tokens      storage.TokenStore
	checkpoints storage.CheckpointStore
	archive     storage.SwapArchive
	swapCache   cache.SwapHistory
	holderCache cache.HolderCache
	priceCache  cache.StringCache
	emitter     fanout.Emitter
	cleanup     []func()
}

func (d *deps) close() {
	for i := len(d.cleanup) - 1; i >= 0; i-- {
		d.cleanup[i]()
	}
}

// buildDeps wires storage, caches and the fan-out bus. With use-memory
// everything runs in-process; otherwise Postgres is required and
// ClickHouse, Redis and NATS attach when configured.
func buildDeps(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) (*deps, error) {
	d := &deps{}

	if useMemory {
		mem := cache.NewMemory(cfg.MaxSwapsKept)
		d.tokens = memory.NewTokenStore()
		d.checkpoints = memory.NewCheckpointStore()
		d.archive = memory.NewSwapArchive()
		d.swapCache = mem
		d.holderCache = mem
		d.priceCache = mem
		d.emitter = fanout.NewRecorder()
		return d, nil
	}

	if cfg.PostgresDSN == "" {
		return nil, errors.New("postgres_dsn is required unless -use-memory is set")
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	d.cleanup = append(d.cleanup, pool.Close)

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		d.close()
		return nil, err
	}

	d.tokens = pgstore.NewTokenStore(pool)
	d.checkpoints = pgstore.NewCheckpointStore(pool)

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			d.close()
			return nil, err
		}
		d.cleanup = append(d.cleanup, func() { conn.Close() })
		d.archive = chstore.NewSwapArchive(conn)
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			&cache.RedisOptions{MaxSwaps: cfg.MaxSwapsKept})
		if err != nil {
			d.close()
			return nil, err
		}
		d.cleanup = append(d.cleanup, func() { rdb.Close() })
		d.swapCache = rdb
		d.holderCache = rdb
		d.priceCache = rdb
	} else {
		mem := cache.NewMemory(cfg.MaxSwapsKept)
		d.swapCache = mem
		d.holderCache = mem
		d.priceCache = mem
	}

	if cfg.NATSURL != "" {
		emitter, err := fanout.NewNATS(cfg.NATSURL, logger)
		if err != nil {
			d.close()
			return nil, err
		}
		d.cleanup = append(d.cleanup, emitter.Close)
		d.emitter = emitter
	} else {
		d.emitter = fanout.NewRecorder()
	}

	return d, nil
}

func curveParams(cfg *config.Config) curve.Params {
	return curve.Params{
		VirtualReserveLamport: cfg.VirtualReserveLamport,
		CurveLimitLamport:     cfg.CurveLimitLamport,
		TokenSupply:           cfg.TokenSupply,
		DefaultDecimals:       cfg.DefaultDecimals,
	}
}

func buildHandler(cfg *config.Config, d *deps, rpc solana.RPCClient, logger zerolog.Logger) *ingestion.Handler {
	var migrator migration.Migrator
	if cfg.MigrationURL != "" {
		migrator = migration.NewWebhook(cfg.MigrationURL, nil)
	} else {
		migrator = &migration.LogOnly{Log: logger}
	}

	return ingestion.NewHandler(ingestion.HandlerOptions{
		Parser:      logparse.New(cfg.ProgramID, logger),
		Tokens:      d.tokens,
		Checkpoints: d.checkpoints,
		Archive:     d.archive,
		Swaps:       d.swapCache,
		Emitter:     d.emitter,
		Prices:      oracle.NewHTTPSource(&oracle.Options{Cache: d.priceCache}, logger),
		Migrator:    migrator,
		Verifier:    migration.NewVerifier(rpc, cfg.ProgramID, nil, logger),
		Params:      curveParams(cfg),
		Logger:      logger,
	})
}

func runLive(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) error {
	d, err := buildDeps(ctx, cfg, useMemory, logger)
	if err != nil {
		return err
	}
	defer d.close()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	handler := buildHandler(cfg, d, rpc, logger)

	wsCfg := solana.DefaultWSConfig()
	wsCfg.HeartbeatInterval = cfg.HeartbeatInterval
	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg, logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	backfiller := ingestion.NewBackfiller(rpc, handler, d.checkpoints, &ingestion.BackfillOptions{
		Concurrency: cfg.BackfillConcurrency,
		Lookback:    cfg.BackfillLookback,
		SlotWindow:  cfg.BackfillSlotWindow,
	}, logger)
	subscriber := ingestion.NewSubscriber(ws, handler, cfg.ProgramID, logger)

	holderSvc := holders.NewService(rpc, d.holderCache, d.tokens, d.emitter, &holders.Options{
		MaxHolders: cfg.MaxHolders,
		Staleness:  cfg.HolderStaleness,
	}, logger)

	runner := ingestion.NewRunner(backfiller, subscriber, &ingestion.RunnerOptions{
		Holders:       holderSvc,
		SweepInterval: cfg.SweepInterval,
		SweepBatch:    cfg.SweepBatch,
	}, logger)

	return runner.Run(ctx)
}

func runBackfill(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) error {
	d, err := buildDeps(ctx, cfg, useMemory, logger)
	if err != nil {
		return err
	}
	defer d.close()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	handler := buildHandler(cfg, d, rpc, logger)

	backfiller := ingestion.NewBackfiller(rpc, handler, d.checkpoints, &ingestion.BackfillOptions{
		Concurrency: cfg.BackfillConcurrency,
		Lookback:    cfg.BackfillLookback,
		SlotWindow:  cfg.BackfillSlotWindow,
	}, logger)

	result, err := backfiller.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Int64("start", result.StartSlot).
		Int64("head", result.HeadSlot).
		Int("scanned", result.SlotsScanned).
		Int("skipped", result.SlotsSkipped).
		Msg("backfill complete")
	return nil
}

func runHolders(ctx context.Context, cfg *config.Config, mint string, useMemory bool, logger zerolog.Logger) error {
	if mint == "" {
		return errors.New("-mint is required for mode=holders")
	}

	d, err := buildDeps(ctx, cfg, useMemory, logger)
	if err != nil {
		return err
	}
	defer d.close()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	holderSvc := holders.NewService(rpc, d.holderCache, d.tokens, d.emitter, &holders.Options{
		MaxHolders: cfg.MaxHolders,
		Staleness:  cfg.HolderStaleness,
	}, logger)

	count, err := holderSvc.Refresh(ctx, mint)
	if err != nil {
		return err
	}
	logger.Info().Str("mint", mint).Int("holders", count).Msg("holder snapshot rebuilt")
	return nil
}
