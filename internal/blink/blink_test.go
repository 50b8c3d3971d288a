package blink

import (
	"testing"
	"time"
)

const (
	open   = 0.30
	closed = 0.05
)

// frame is one observation at an offset from the test's base time.
type frame struct {
	at    time.Duration
	ratio float64
}

// blinks builds closed/open frame pairs, one closure at each offset, each
// lasting 100ms.
func blinks(offsets ...time.Duration) []frame {
	var frames []frame
	for _, off := range offsets {
		frames = append(frames, frame{at: off, ratio: closed}, frame{at: off + 100*time.Millisecond, ratio: open})
	}
	return frames
}

func run(d *Detector, base time.Time, frames []frame) (fired int) {
	for _, f := range frames {
		if d.Observe(f.ratio, f.ratio, base.Add(f.at)) {
			fired++
		}
	}
	return fired
}

func TestDetector_ThreeBlinksInsideWindowFireOnce(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(1000, 0)

	fired := run(d, base, blinks(0, 500*time.Millisecond, 1400*time.Millisecond))

	if fired != 1 {
		t.Errorf("fired %d times, want 1", fired)
	}
	if d.Count() != 0 {
		t.Errorf("count = %d after firing, want 0", d.Count())
	}
}

func TestDetector_ThreeBlinksSpanningTwoSecondsNeverFire(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(1000, 0)

	fired := run(d, base, blinks(0, time.Second, 2*time.Second))

	if fired != 0 {
		t.Errorf("fired %d times, want 0", fired)
	}

	// Once the window of the last sequence has passed the count is cleared.
	d.Observe(open, open, base.Add(4*time.Second))
	if d.Count() != 0 {
		t.Errorf("count = %d after window expiry, want 0", d.Count())
	}
}

func TestDetector_CountResetsWhenWindowExpires(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(1000, 0)

	run(d, base, blinks(0, 400*time.Millisecond))
	if d.Count() != 2 {
		t.Fatalf("count = %d, want 2", d.Count())
	}

	d.Observe(open, open, base.Add(1600*time.Millisecond))
	if d.Count() != 0 {
		t.Errorf("count = %d after window, want 0", d.Count())
	}
}

func TestDetector_EdgeTriggered(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(1000, 0)

	// Holding the eyes closed over many frames is one blink.
	for i := 0; i < 20; i++ {
		if d.Observe(closed, closed, base.Add(time.Duration(i)*10*time.Millisecond)) {
			t.Fatal("a held closure must not fire")
		}
	}
	if d.Count() != 1 {
		t.Errorf("count = %d, want 1", d.Count())
	}
	if d.State() != EyesClosed {
		t.Errorf("state = %v, want closed", d.State())
	}

	d.Observe(open, open, base.Add(300*time.Millisecond))
	if d.State() != EyesOpen || d.Count() != 1 {
		t.Errorf("opening must be silent: state=%v count=%d", d.State(), d.Count())
	}
}

func TestDetector_OneEyeClosedIsNotABlink(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(1000, 0)

	for i := 0; i < 6; i++ {
		ratio := closed
		if i%2 == 1 {
			ratio = open
		}
		d.Observe(ratio, open, base.Add(time.Duration(i)*100*time.Millisecond))
	}

	if d.Count() != 0 {
		t.Errorf("count = %d, want 0 for single-eye closures", d.Count())
	}
}

func TestDetector_FiresAgainForNextSequence(t *testing.T) {
	d := New(DefaultConfig())
	base := time.Unix(1000, 0)

	fired := run(d, base, blinks(
		0, 300*time.Millisecond, 600*time.Millisecond,
		3*time.Second, 3300*time.Millisecond, 3600*time.Millisecond,
	))

	if fired != 2 {
		t.Errorf("fired %d times, want 2", fired)
	}
}

func TestNew_Defaults(t *testing.T) {
	d := New(Config{})
	if d.config != DefaultConfig() {
		t.Errorf("config = %+v, want %+v", d.config, DefaultConfig())
	}
}

func TestDetector_Reset(t *testing.T) {
	d := New(DefaultConfig())
	d.Observe(closed, closed, time.Unix(1000, 0))
	d.Reset()

	if d.Count() != 0 || d.State() != EyesOpen {
		t.Errorf("after Reset: count=%d state=%v", d.Count(), d.State())
	}
}
