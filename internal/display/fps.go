package display

import "time"

// FPSMeter smooths the instantaneous frame rate with an exponential moving
// average: fps = 0.9*fps + 0.1*(1/dt).
type FPSMeter struct {
	last time.Time
	fps  float64
}

// Tick records a frame at t and returns the smoothed rate.
func (m *FPSMeter) Tick(t time.Time) float64 {
	if !m.last.IsZero() {
		if dt := t.Sub(m.last).Seconds(); dt > 0 {
			m.fps = 0.9*m.fps + 0.1*(1/dt)
		}
	}
	m.last = t
	return m.fps
}

// FPS returns the current smoothed rate.
func (m *FPSMeter) FPS() float64 {
	return m.fps
}
