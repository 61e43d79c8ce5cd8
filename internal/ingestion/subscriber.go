package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"curve-engine/internal/observability"
	"curve-engine/internal/solana"
)

// Subscriber feeds live logsSubscribe notifications into the handler.
// Connection liveness and recovery live in the WS client; the
// subscriber only consumes.
type Subscriber struct {
	ws        solana.WSClient
	handler   *Handler
	programID string
	log       zerolog.Logger
}

// NewSubscriber creates a live log subscriber.
func NewSubscriber(ws solana.WSClient, handler *Handler, programID string, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		ws:        ws,
		handler:   handler,
		programID: programID,
		log:       log.With().Str("component", "subscriber").Logger(),
	}
}

// Run subscribes to launch-program logs and processes notifications
// until the context ends or the client closes.
func (s *Subscriber) Run(ctx context.Context) error {
	ch, err := s.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{s.programID},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	s.log.Info().Str("program", s.programID).Msg("live subscription established")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			observability.DefaultMetrics.WSNotifications.Inc()

			if notif.Err != nil {
				// Failed transactions never change state
				continue
			}
			s.handler.HandleLogs(ctx, notif.Slot, notif.Signature, notif.Logs)
		}
	}
}
