package solana

import "context"

// WSClient is the live log feed. Implementations own connection
// liveness; consumers only read the notification channel.
type WSClient interface {
	// SubscribeLogs opens a logsSubscribe stream for the filter. The
	// channel survives reconnects and closes when the client closes.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close tears down the connection and all subscriptions.
	Close() error
}

// LogsFilter selects which transactions the node pushes.
type LogsFilter struct {
	// Mentions matches transactions that reference any of these
	// program IDs.
	Mentions []string
}

// LogNotification is one pushed transaction: its signature, the slot it
// landed in, the raw program log lines, and the node's error value for
// failed transactions (nil on success).
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
