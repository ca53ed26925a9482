package helpers

import (
	"sync"

	"github.com/kode4food/sequin/pkg/api"
)

// EventRecorder collects published run events for inspection
type EventRecorder struct {
	events []*api.RunEvent
	mu     sync.Mutex
}

// NewEventRecorder creates an empty EventRecorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records ev
func (r *EventRecorder) Publish(ev *api.RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the recorded events in publication order
func (r *EventRecorder) Events() []*api.RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*api.RunEvent, len(r.events))
	copy(res, r.events)
	return res
}

// Types returns the types of the recorded events in publication order
func (r *EventRecorder) Types() []api.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]api.EventType, len(r.events))
	for i, ev := range r.events {
		res[i] = ev.Type
	}
	return res
}
