package controller

import (
	"time"

	"github.com/verte-zerg/tuireach/internal/model"
)

// EventKind identifies a lifecycle signal.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventStop
	EventTrialSaved
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventTrialSaved:
		return "trial_saved"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners outside the controller lock.
type Event struct {
	Kind    EventKind
	At      time.Time
	Session int
	Trial   int
	// Saved is set for EventTrialSaved.
	Saved *model.Trial
	// Err carries the persistence error of a saved trial, if any.
	Err error
}

// Listener receives controller events. Listeners run on the goroutine that
// caused the transition and must not call back into the controller's
// blocking methods for long.
type Listener func(Event)

// Subscribe registers l for all future events.
func (c *Controller) Subscribe(l Listener) {
	if l == nil {
		return
	}
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenersMu.Unlock()
}

func (c *Controller) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	c.listenersMu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.listenersMu.RUnlock()
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
