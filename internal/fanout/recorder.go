package fanout

import (
	"context"
	"sync"
)

// Emitted is one captured notification.
type Emitted struct {
	Room    string
	Event   string
	Payload any
}

// Recorder is an Emitter that captures notifications in memory, for
// tests and for running without a message bus.
type Recorder struct {
	mu     sync.Mutex
	events []Emitted
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Compile-time interface check.
var _ Emitter = (*Recorder)(nil)

// Emit captures the notification.
func (r *Recorder) Emit(ctx context.Context, room, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Room: room, Event: event, Payload: payload})
}

// Events returns a copy of everything captured so far.
func (r *Recorder) Events() []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emitted(nil), r.events...)
}

// ByEvent returns captured notifications with the given event name.
func (r *Recorder) ByEvent(event string) []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Emitted
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
