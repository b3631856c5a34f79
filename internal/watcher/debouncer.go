package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events per path so a burst of writes ends
// up as one batch. Sequences on the same path merge:
//
//	CREATE then MODIFY  -> CREATE
//	CREATE then DELETE  -> dropped
//	MODIFY then DELETE  -> DELETE
//	DELETE then CREATE  -> MODIFY
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pendingEvent
	output  chan []Event
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event   Event
	firstOp Op
}

// NewDebouncer creates a debouncer that emits a batch once no event has
// arrived for the window duration.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []Event, 10),
	}
}

// Add feeds one event into the current window.
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		merged, keep := coalesce(existing.firstOp, event)
		if !keep {
			delete(d.pending, event.Path)
		} else {
			existing.event = merged
		}
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, firstOp: event.Op}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges a new event into the op the window started with.
func coalesce(first Op, next Event) (Event, bool) {
	switch first {
	case OpCreate:
		switch next.Op {
		case OpModify:
			next.Op = OpCreate
			return next, true
		case OpDelete:
			return Event{}, false
		}
	case OpDelete:
		if next.Op == OpCreate {
			next.Op = OpModify
			return next, true
		}
	}
	return next, true
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for _, pe := range d.pending {
		batch = append(batch, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer output full, dropping batch", slog.Int("size", len(batch)))
	}
}

// Output returns the channel of debounced batches. It is closed by
// Stop.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Stop halts the debouncer. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
