// Package migration hands completed curves to the external migration
// service and verifies curve completion against on-chain account state.
package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/domain"
)

// Migrator moves a completed token's liquidity off the bonding curve.
// The engine treats the implementation as opaque: it only reacts to the
// returned error by leaving the token in migrating state.
type Migrator interface {
	MigrateToken(ctx context.Context, t *domain.Token) error
}

// Webhook posts the completed token to an external migration service.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook migrator targeting url.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

// Compile-time interface check.
var _ Migrator = (*Webhook)(nil)

// MigrateToken posts the token and fails on any non-2xx response.
func (w *Webhook) MigrateToken(ctx context.Context, t *domain.Token) error {
	payload, err := json.Marshal(map[string]any{
		"mint":    t.Mint,
		"creator": t.Creator,
		"txId":    t.TxID,
	})
	if err != nil {
		return fmt.Errorf("marshal migration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create migration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post migration request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("migration service returned status %d", resp.StatusCode)
	}
	return nil
}

// LogOnly records migration requests without acting on them, for runs
// without a migration service.
type LogOnly struct {
	Log zerolog.Logger
}

// Compile-time interface check.
var _ Migrator = (*LogOnly)(nil)

func (l *LogOnly) MigrateToken(ctx context.Context, t *domain.Token) error {
	l.Log.Info().Str("mint", t.Mint).Msg("migration requested, no migrator configured")
	return nil
}
