package testutil

import (
	"sync"

	"github.com/mcoot/blendin/internal/model"
)

// RecordingSink collects every event sent to it
type RecordingSink struct {
	mu     sync.Mutex
	events []model.Event
}

// NewRecordingSink creates an empty RecordingSink
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Send records the event
func (r *RecordingSink) Send(event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything received so far
func (r *RecordingSink) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every event received, in order
func (r *RecordingSink) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// OfType returns the events of a single type, in order
func (r *RecordingSink) OfType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event of the given type and whether there was one
func (r *RecordingSink) Last(t model.EventType) (model.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return model.Event{}, false
}

// Reset discards everything received so far
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
