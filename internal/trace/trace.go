// Package trace collects per-fix lifecycle outcomes for logging and the
// companion scan tool.
package trace

import "sync"

// Status classifies how a fix ended up after initialization.
type Status string

// Fix outcomes.
const (
	Installed Status = "installed"
	Disabled  Status = "disabled"
	NotFound  Status = "not-found"
	Failed    Status = "failed"
)

// Event records one fix outcome.
type Event struct {
	Fix    string
	Status Status
	Addr   uintptr // hook address, when Installed
	Err    error   // cause, when Failed
}

// Report accumulates events; safe for concurrent use.
type Report struct {
	mu     sync.Mutex
	events []Event
}

// Add appends an event.
func (r *Report) Add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the collected events.
func (r *Report) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns the number of events with the given status.
func (r *Report) Count(s Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Status == s {
			n++
		}
	}
	return n
}
