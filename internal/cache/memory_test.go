package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"curve-engine/internal/domain"
)

func TestMemory_PushBounded(t *testing.T) {
	m := NewMemory(5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		rec := &domain.SwapRecord{
			ID:   fmt.Sprintf("swap%d", i),
			Mint: "mint1",
		}
		if err := m.Push(ctx, "mint1", rec); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	list, err := m.List(ctx, "mint1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected list trimmed to 5, got %d", len(list))
	}

	// Most recent first; oldest three evicted
	if list[0].ID != "swap7" {
		t.Errorf("expected swap7 first, got %s", list[0].ID)
	}
	if list[4].ID != "swap3" {
		t.Errorf("expected swap3 last, got %s", list[4].ID)
	}
}

func TestMemory_ListLimit(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		m.Push(ctx, "mint1", &domain.SwapRecord{ID: fmt.Sprintf("s%d", i)})
	}

	list, err := m.List(ctx, "mint1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2, got %d", len(list))
	}
}

func TestMemory_ListCopies(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	m.Push(ctx, "mint1", &domain.SwapRecord{ID: "s1", Price: 1})

	list, _ := m.List(ctx, "mint1", 0)
	list[0].Price = 999

	again, _ := m.List(ctx, "mint1", 0)
	if again[0].Price != 1 {
		t.Error("List must return copies, not shared state")
	}
}

func TestMemory_HolderSnapshot(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	if _, err := m.Get(ctx, "mint1"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}

	snap := &domain.HolderSnapshot{
		Mint: "mint1",
		Holders: []domain.TokenHolder{
			{Address: "a", Amount: 10, Percentage: 100},
		},
		Total:     10,
		UpdatedAt: time.Now(),
	}
	if err := m.Set(ctx, "mint1", snap); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := m.Get(ctx, "mint1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Holders) != 1 || got.Total != 10 {
		t.Errorf("snapshot mismatch: %+v", got)
	}

	// Mutating the returned snapshot must not affect the cache
	got.Holders[0].Amount = 999
	again, _ := m.Get(ctx, "mint1")
	if again.Holders[0].Amount != 10 {
		t.Error("Get must return copies, not shared state")
	}
}

func TestMemory_StringTTL(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	if _, err := m.GetString(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}

	if err := m.SetString(ctx, "k", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	v, err := m.GetString(ctx, "k")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if v != "v" {
		t.Errorf("expected v, got %s", v)
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := m.GetString(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after expiry, got %v", err)
	}
}

func TestMemory_StringNoTTL(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	m.SetString(ctx, "k", "v", 0)

	if v, err := m.GetString(ctx, "k"); err != nil || v != "v" {
		t.Errorf("zero ttl must never expire: %q, %v", v, err)
	}
}
