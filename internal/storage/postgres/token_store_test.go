package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"curve-engine/internal/domain"
	"curve-engine/internal/storage"
)

func testToken(mint string) *domain.Token {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Token{
		Mint:        mint,
		Name:        "Test Token",
		Ticker:      "TEST",
		Creator:     "creator1",
		Status:      domain.StatusActive,
		Decimals:    6,
		TxID:        "sig-" + mint,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func TestTokenStore_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	created, err := store.Create(ctx, testToken("mint1"))
	require.NoError(t, err)
	require.True(t, created)

	got, err := store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, "Test Token", got.Name)
	require.Equal(t, domain.StatusActive, got.Status)
	require.Equal(t, 6, got.Decimals)
}

func TestTokenStore_CreateConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	created, err := store.Create(ctx, testToken("mint1"))
	require.NoError(t, err)
	require.True(t, created)

	dup := testToken("mint1")
	dup.Name = "Other"
	created, err = store.Create(ctx, dup)
	require.NoError(t, err)
	require.False(t, created, "conflicting insert must report not created")

	got, err := store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, "Test Token", got.Name, "existing row must be untouched")
}

func TestTokenStore_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_ApplySwap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	_, err := store.Create(ctx, testToken("mint1"))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	eco := storage.TokenEconomics{
		ReserveToken:   950000000000000,
		ReserveLamport: 57000000000,
		Price:          0.00006,
		PriceUSD:       0.006,
		SolPriceUSD:    100,
		MarketCapUSD:   6000000,
		Liquidity:      11400,
		CurveProgress:  50,
		VolumeDelta:    250,
		TxID:           "swapsig",
		LastUpdated:    now,
	}
	require.NoError(t, store.ApplySwap(ctx, "mint1", eco))

	got, err := store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, 57000000000.0, got.ReserveLamport)
	require.Equal(t, 250.0, got.Volume24h)
	require.Equal(t, "swapsig", got.TxID)

	// Second application accumulates volume
	eco.VolumeDelta = 50
	require.NoError(t, store.ApplySwap(ctx, "mint1", eco))

	got, err = store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, 300.0, got.Volume24h)
}

func TestTokenStore_ApplySwapNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	err := store.ApplySwap(context.Background(), "missing", storage.TokenEconomics{LastUpdated: time.Now()})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_ApplySwapConcurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	_, err := store.Create(ctx, testToken("mint1"))
	require.NoError(t, err)

	// The single-statement COALESCE increment must not lose updates
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.ApplySwap(ctx, "mint1", storage.TokenEconomics{
				VolumeDelta: 1,
				LastUpdated: time.Now().UTC(),
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, 20.0, got.Volume24h)
}

func TestTokenStore_TransitionStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	_, err := store.Create(ctx, testToken("mint1"))
	require.NoError(t, err)

	moved, err := store.TransitionStatus(ctx, "mint1", domain.StatusMigrating, domain.StatusActive, domain.StatusPending)
	require.NoError(t, err)
	require.True(t, moved)

	// Guard fails on the second attempt
	moved, err = store.TransitionStatus(ctx, "mint1", domain.StatusMigrating, domain.StatusActive, domain.StatusPending)
	require.NoError(t, err)
	require.False(t, moved)

	got, err := store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusMigrating, got.Status)

	// Unguarded transition always applies
	moved, err = store.TransitionStatus(ctx, "mint1", domain.StatusMigrated)
	require.NoError(t, err)
	require.True(t, moved)
}

func TestTokenStore_RecentlyTraded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	old := testToken("old")
	old.LastUpdated = time.Now().UTC().Add(-time.Hour)
	_, err := store.Create(ctx, old)
	require.NoError(t, err)

	fresh := testToken("fresh")
	_, err = store.Create(ctx, fresh)
	require.NoError(t, err)

	mints, err := store.RecentlyTraded(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{"fresh"}, mints)
}

func TestTokenStore_SetHolderCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	_, err := store.Create(ctx, testToken("mint1"))
	require.NoError(t, err)

	require.NoError(t, store.SetHolderCount(ctx, "mint1", 42))

	got, err := store.Get(ctx, "mint1")
	require.NoError(t, err)
	require.Equal(t, 42, got.HolderCount)
}
