package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// subjectPrefix namespaces all engine notifications on the NATS bus.
const subjectPrefix = "curve.events"

// NATS is an Emitter publishing JSON payloads to NATS subjects of the
// form curve.events.<room>.<event>.
type NATS struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NewNATS connects to the NATS server at url.
func NewNATS(url string, log zerolog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{
		conn: conn,
		log:  log.With().Str("component", "fanout").Logger(),
	}, nil
}

// Close drains and closes the connection.
func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.log.Warn().Err(err).Msg("drain nats connection")
	}
}

// Compile-time interface check.
var _ Emitter = (*NATS)(nil)

// Emit publishes the payload. Failures are logged and dropped.
func (n *NATS) Emit(ctx context.Context, room, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Str("room", room).Str("event", event).Msg("marshal fanout payload")
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", subjectPrefix, room, event)
	if err := n.conn.Publish(subject, data); err != nil {
		n.log.Warn().Err(err).Str("subject", subject).Msg("publish fanout event")
	}
}
