// Package blink detects a quick sequence of deliberate blinks from per-frame
// eye openness ratios.
package blink

import "time"

// Detection defaults.
const (
	DefaultClosedRatio = 0.15
	DefaultCount       = 3
	DefaultWindow      = 1500 * time.Millisecond
)

// State is the eye state tracked between frames.
type State int

const (
	EyesOpen State = iota
	EyesClosed
)

func (s State) String() string {
	if s == EyesClosed {
		return "closed"
	}
	return "open"
}

// Config tunes a Detector.
type Config struct {
	// ClosedRatio is the openness below which an eye counts as closed.
	ClosedRatio float64
	// Count is the number of blinks that fire the trigger.
	Count int
	// Window bounds the time from the first blink of a sequence to the last.
	Window time.Duration
}

// DefaultConfig returns the triple-blink-in-1.5s configuration.
func DefaultConfig() Config {
	return Config{
		ClosedRatio: DefaultClosedRatio,
		Count:       DefaultCount,
		Window:      DefaultWindow,
	}
}

// Detector counts open-to-closed transitions and fires once when Count of them
// happen within Window. It is not safe for concurrent use.
type Detector struct {
	config  Config
	state   State
	count   int
	firstAt time.Time
}

// New creates a Detector. Zero fields in config take their defaults.
func New(config Config) *Detector {
	def := DefaultConfig()
	if config.ClosedRatio <= 0 {
		config.ClosedRatio = def.ClosedRatio
	}
	if config.Count <= 0 {
		config.Count = def.Count
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	return &Detector{config: config}
}

// Observe feeds one frame's openness ratios taken at t. Both eyes must be
// below the threshold for the frame to count as closed. It returns true on
// the frame that completes a sequence.
func (d *Detector) Observe(left, right float64, t time.Time) bool {
	closed := left < d.config.ClosedRatio && right < d.config.ClosedRatio
	return d.ObserveClosed(closed, t)
}

// ObserveClosed is Observe for callers that already classified the frame.
func (d *Detector) ObserveClosed(closed bool, t time.Time) bool {
	// An expired sequence is dropped before this frame's edge is counted.
	if d.count > 0 && t.Sub(d.firstAt) > d.config.Window {
		d.count = 0
	}

	switch {
	case closed && d.state == EyesOpen:
		d.state = EyesClosed
		if d.count == 0 {
			d.firstAt = t
		}
		d.count++
	case !closed:
		d.state = EyesOpen
	}

	if d.count >= d.config.Count {
		d.count = 0
		return true
	}
	return false
}

// Count returns the blinks accumulated in the current sequence.
func (d *Detector) Count() int {
	return d.count
}

// State returns the eye state after the last observation.
func (d *Detector) State() State {
	return d.state
}

// Reset clears the sequence and assumes open eyes.
func (d *Detector) Reset() {
	d.state = EyesOpen
	d.count = 0
	d.firstAt = time.Time{}
}
