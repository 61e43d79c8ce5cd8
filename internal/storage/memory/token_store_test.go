package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"curve-engine/internal/domain"
	"curve-engine/internal/storage"
)

func TestTokenStore_CreateAndGet(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	token := &domain.Token{
		Mint:     "mint1",
		Creator:  "creator1",
		Status:   domain.StatusActive,
		Decimals: 6,
	}

	created, err := store.Create(ctx, token)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !created {
		t.Fatal("expected created=true for new mint")
	}

	got, err := store.Get(ctx, "mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Creator != "creator1" {
		t.Errorf("creator mismatch: %s", got.Creator)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("status mismatch: %s", got.Status)
	}
}

func TestTokenStore_CreateDuplicate(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, &domain.Token{Mint: "mint1"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	created, err := store.Create(ctx, &domain.Token{Mint: "mint1", Creator: "other"})
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if created {
		t.Error("expected created=false for existing mint")
	}

	// The original row must be untouched
	got, _ := store.Get(ctx, "mint1")
	if got.Creator == "other" {
		t.Error("duplicate create must not overwrite")
	}
}

func TestTokenStore_GetMissing(t *testing.T) {
	store := NewTokenStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_ApplySwap(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Create(ctx, &domain.Token{Mint: "mint1", Status: domain.StatusActive})

	eco := storage.TokenEconomics{
		ReserveToken:   1e15,
		ReserveLamport: 5e9,
		Price:          0.000005,
		PriceUSD:       0.0005,
		SolPriceUSD:    100,
		VolumeDelta:    250,
		TxID:           "sig1",
		LastUpdated:    time.Now(),
	}
	if err := store.ApplySwap(ctx, "mint1", eco); err != nil {
		t.Fatalf("ApplySwap failed: %v", err)
	}

	got, _ := store.Get(ctx, "mint1")
	if got.ReserveLamport != 5e9 {
		t.Errorf("reserve mismatch: %v", got.ReserveLamport)
	}
	if got.Volume24h != 250 {
		t.Errorf("volume mismatch: %v", got.Volume24h)
	}

	// Second swap accumulates volume but overwrites pricing
	eco.VolumeDelta = 50
	eco.Price = 0.000006
	if err := store.ApplySwap(ctx, "mint1", eco); err != nil {
		t.Fatalf("ApplySwap failed: %v", err)
	}

	got, _ = store.Get(ctx, "mint1")
	if got.Volume24h != 300 {
		t.Errorf("expected accumulated volume 300, got %v", got.Volume24h)
	}
	if got.Price != 0.000006 {
		t.Errorf("expected overwritten price, got %v", got.Price)
	}
}

func TestTokenStore_ApplySwapMissing(t *testing.T) {
	store := NewTokenStore()

	err := store.ApplySwap(context.Background(), "missing", storage.TokenEconomics{})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_ApplySwapConcurrent(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Create(ctx, &domain.Token{Mint: "mint1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.ApplySwap(ctx, "mint1", storage.TokenEconomics{VolumeDelta: 1})
		}()
	}
	wg.Wait()

	got, _ := store.Get(ctx, "mint1")
	if got.Volume24h != 50 {
		t.Errorf("expected volume 50 after concurrent swaps, got %v", got.Volume24h)
	}
}

func TestTokenStore_TransitionStatus(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Create(ctx, &domain.Token{Mint: "mint1", Status: domain.StatusActive})

	moved, err := store.TransitionStatus(ctx, "mint1", domain.StatusMigrating, domain.StatusActive, domain.StatusPending)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	if !moved {
		t.Fatal("expected transition from active")
	}

	// Guard no longer matches
	moved, err = store.TransitionStatus(ctx, "mint1", domain.StatusMigrating, domain.StatusActive, domain.StatusPending)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	if moved {
		t.Error("expected no transition from migrating")
	}

	got, _ := store.Get(ctx, "mint1")
	if got.Status != domain.StatusMigrating {
		t.Errorf("expected migrating, got %s", got.Status)
	}
}

func TestTokenStore_TransitionStatusMissing(t *testing.T) {
	store := NewTokenStore()

	moved, err := store.TransitionStatus(context.Background(), "missing", domain.StatusMigrating)
	if err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}
	if moved {
		t.Error("expected no transition for missing mint")
	}
}

func TestTokenStore_RecentlyTraded(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	now := time.Now().UTC()
	store.Create(ctx, &domain.Token{Mint: "old", LastUpdated: now.Add(-time.Hour)})
	store.Create(ctx, &domain.Token{Mint: "fresh", LastUpdated: now})

	mints, err := store.RecentlyTraded(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("RecentlyTraded failed: %v", err)
	}
	if len(mints) != 1 || mints[0] != "fresh" {
		t.Errorf("expected [fresh], got %v", mints)
	}
}

func TestTokenStore_ReturnsCopies(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Create(ctx, &domain.Token{Mint: "mint1", Creator: "creator1"})

	got, _ := store.Get(ctx, "mint1")
	got.Creator = "mutated"

	again, _ := store.Get(ctx, "mint1")
	if again.Creator != "creator1" {
		t.Error("Get must return a copy, not shared state")
	}
}
