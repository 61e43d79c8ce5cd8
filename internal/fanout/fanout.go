// Package fanout publishes state-change notifications to subscriber
// rooms. Delivery is fire-and-forget: a failed publish is logged and
// never blocks or fails event processing.
package fanout

import "context"

// Room names. Every token has its own room; global carries launches and
// lifecycle changes all clients care about.
const RoomGlobal = "global"

// RoomToken returns the per-token room name.
func RoomToken(mint string) string {
	return "token-" + mint
}

// Event names emitted by the engine.
const (
	EventNewToken    = "newToken"
	EventNewSwap     = "newSwap"
	EventTokenUpdate = "updateToken"
	EventHolders     = "holdersUpdated"
)

// Emitter delivers one event to one room.
type Emitter interface {
	Emit(ctx context.Context, room, event string, payload any)
}
