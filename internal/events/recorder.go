package events

import (
	"context"
	"sync"

	"day.glimpse/internal/models"
)

// Recorder keeps published events in memory, in order.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Publish(_ context.Context, e models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Filter returns the recorded events of kind for profile.
func (r *Recorder) Filter(kind models.EventKind, profile models.Identity) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Event
	for _, e := range r.events {
		if e.Kind == kind && e.Profile == profile {
			out = append(out, e)
		}
	}
	return out
}
