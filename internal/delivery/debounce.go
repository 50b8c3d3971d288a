package delivery

import (
	"sync"
	"time"
)

// Debouncer accepts an event only when at least gap has passed since the last
// accepted one.
type Debouncer struct {
	gap  time.Duration
	last time.Time
	mu   sync.Mutex
}

// NewDebouncer creates a Debouncer with the given minimum gap.
func NewDebouncer(gap time.Duration) *Debouncer {
	return &Debouncer{gap: gap}
}

// Allow reports whether an event happening now is accepted.
func (d *Debouncer) Allow() bool {
	return d.AllowAt(time.Now())
}

// AllowAt reports whether an event at t is accepted, and records it if so.
func (d *Debouncer) AllowAt(t time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.last.IsZero() && t.Sub(d.last) < d.gap {
		return false
	}
	d.last = t
	return true
}
