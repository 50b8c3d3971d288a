// Package status tracks what the running session is doing for the status
// server and the tray.
package status

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/eyecontrol/internal/delivery"
)

// Snapshot is a point-in-time copy of the tracked state.
type Snapshot struct {
	Connected    bool       `json:"connected"`
	Paused       bool       `json:"paused"`
	LastGesture  string     `json:"last_gesture,omitempty"`
	LastDelivery *time.Time `json:"last_delivery,omitempty"`
	Delivered    int        `json:"delivered"`
	Failed       int        `json:"failed"`
	Triggers     int        `json:"triggers"`
	Uptime       string     `json:"uptime"`
}

// Tracker aggregates delivery results and the connection flag. It is a
// delivery.Recorder.
type Tracker struct {
	connected func() bool
	paused    atomic.Bool
	start     time.Time

	mu           sync.Mutex
	lastGesture  string
	lastDelivery time.Time
	delivered    int
	failed       int
	triggers     int
	listeners    []func(Snapshot)
}

// NewTracker returns a tracker reading the connection flag from connected,
// which may be nil when no monitor runs.
func NewTracker(connected func() bool) *Tracker {
	return &Tracker{connected: connected, start: time.Now()}
}

// Record implements delivery.Recorder.
func (t *Tracker) Record(r delivery.Result) {
	t.mu.Lock()
	if r.Success {
		t.delivered++
		if r.Kind == delivery.KindGesture {
			t.lastGesture = r.Payload
		} else {
			t.triggers++
		}
	} else {
		t.failed++
	}
	if !r.Started.IsZero() {
		t.lastDelivery = r.Started.Add(r.Duration)
	}
	listeners := append([]func(Snapshot){}, t.listeners...)
	t.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	snap := t.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

// OnChange registers fn to run after every recorded result.
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Paused reports whether deliveries are suspended.
func (t *Tracker) Paused() bool {
	return t.paused.Load()
}

// SetPaused suspends or resumes deliveries.
func (t *Tracker) SetPaused(p bool) {
	t.paused.Store(p)
}

// TogglePaused flips the paused flag and returns the new value.
func (t *Tracker) TogglePaused() bool {
	for {
		old := t.paused.Load()
		if t.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Connected reads the connection flag.
func (t *Tracker) Connected() bool {
	return t.connected != nil && t.connected()
}

// Snapshot copies the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Connected:   t.Connected(),
		Paused:      t.Paused(),
		LastGesture: t.lastGesture,
		Delivered:   t.delivered,
		Failed:      t.failed,
		Triggers:    t.triggers,
		Uptime:      time.Since(t.start).Round(time.Second).String(),
	}
	if !t.lastDelivery.IsZero() {
		last := t.lastDelivery
		s.LastDelivery = &last
	}
	return s
}
