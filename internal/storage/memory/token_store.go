package memory

import (
	"context"
	"sync"
	"time"

	"curve-engine/internal/domain"
	"curve-engine/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
// Safe for concurrent use.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*domain.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]*domain.Token),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Create inserts the token if the mint is unknown.
func (s *TokenStore) Create(ctx context.Context, t *domain.Token) (bool, error) {
	if t == nil || t.Mint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[t.Mint]; exists {
		return false, nil
	}

	// Store a copy so callers can't mutate our state
	cp := *t
	s.tokens[t.Mint] = &cp
	return true, nil
}

// Get retrieves a token by mint.
func (s *TokenStore) Get(ctx context.Context, mint string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tokens[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy so callers can't mutate our state
	cp := *t
	return &cp, nil
}

// ApplySwap overwrites pricing fields and increments volume.
func (s *TokenStore) ApplySwap(ctx context.Context, mint string, eco storage.TokenEconomics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[mint]
	if !exists {
		return storage.ErrNotFound
	}

	t.ReserveToken = eco.ReserveToken
	t.ReserveLamport = eco.ReserveLamport
	t.Price = eco.Price
	t.PriceUSD = eco.PriceUSD
	t.SolPriceUSD = eco.SolPriceUSD
	t.MarketCapUSD = eco.MarketCapUSD
	t.Liquidity = eco.Liquidity
	t.CurveProgress = eco.CurveProgress
	t.Volume24h += eco.VolumeDelta
	t.TxID = eco.TxID
	t.LastUpdated = eco.LastUpdated
	return nil
}

// TransitionStatus performs a guarded status update.
func (s *TokenStore) TransitionStatus(ctx context.Context, mint string, to domain.TokenStatus, allowedFrom ...domain.TokenStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[mint]
	if !exists {
		return false, nil
	}

	if len(allowedFrom) > 0 {
		allowed := false
		for _, st := range allowedFrom {
			if t.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, nil
		}
	}

	t.Status = to
	t.LastUpdated = time.Now().UTC()
	return true, nil
}

// SetHolderCount stores the holder count from the latest snapshot.
func (s *TokenStore) SetHolderCount(ctx context.Context, mint string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[mint]
	if !exists {
		return storage.ErrNotFound
	}

	t.HolderCount = count
	return nil
}

// RecentlyTraded returns mints updated at or after the cutoff.
func (s *TokenStore) RecentlyTraded(ctx context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mints []string
	for mint, t := range s.tokens {
		if !t.LastUpdated.Before(since) {
			mints = append(mints, mint)
		}
	}
	return mints, nil
}
