package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayusman/eyecontrol/internal/actuator"
	"github.com/ayusman/eyecontrol/internal/capture"
	"github.com/ayusman/eyecontrol/internal/config"
	"github.com/ayusman/eyecontrol/internal/detector"
	"github.com/ayusman/eyecontrol/internal/display"
	"github.com/ayusman/eyecontrol/internal/gesture"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("EYE_ENV", "test")
	t.Setenv("EYE_JOURNAL_PATH", filepath.Join(t.TempDir(), "journal.db"))
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestServices_Recorders(t *testing.T) {
	cfg := testConfig(t)
	cfg.StatusAddr = "127.0.0.1:0"

	s, err := NewServices("eyecontrol", cfg, cfg.PeerIP)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	defer s.Close()

	if s.Store == nil || s.Hub == nil {
		t.Fatal("journal and hub should be enabled")
	}
	// Tracker, journal and hub.
	if got := len(s.Recorders()); got != 3 {
		t.Errorf("len(Recorders()) = %d, want 3", got)
	}
	if s.Monitor.Connected() {
		t.Error("monitor should start disconnected")
	}
}

func TestServices_JournalDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.JournalPath = ""

	s, err := NewServices("blinktoggle", cfg, cfg.ToggleIP())
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	defer s.Close()

	if s.Store != nil || s.Hub != nil {
		t.Error("journal and hub should be disabled")
	}
	if got := len(s.Recorders()); got != 1 {
		t.Errorf("len(Recorders()) = %d, want 1", got)
	}
}

func TestServices_OpenServosWithoutBus(t *testing.T) {
	cfg := testConfig(t)
	cfg.JournalPath = ""
	s, _ := NewServices("blinktoggle", cfg, cfg.PeerIP)

	servos, err := s.OpenServos()
	if err != nil {
		t.Fatalf("OpenServos() error = %v", err)
	}
	if _, ok := servos.(actuator.Noop); !ok {
		t.Errorf("OpenServos() = %T, want actuator.Noop", servos)
	}
}

func TestServices_ClientJournalsDeliveries(t *testing.T) {
	var hits atomic.Int32
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer peer.Close()

	cfg := testConfig(t)
	s, err := NewServices("eyecontrol", cfg, cfg.PeerIP)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	defer s.Close()

	client := s.Client(peer.URL, 5, time.Second)
	if res := client.SendGesture(context.Background(), "up"); !res.Success {
		t.Fatalf("SendGesture() = %+v", res)
	}

	events, err := s.Store.Events().Recent(10)
	if err != nil || len(events) != 1 {
		t.Fatalf("journal = %v, %v; want 1 event", events, err)
	}
	if events[0].Payload != "up" {
		t.Errorf("journaled payload = %q", events[0].Payload)
	}
	if snap := s.Tracker.Snapshot(); snap.LastGesture != "up" {
		t.Errorf("tracker last gesture = %q", snap.LastGesture)
	}
}

func TestServices_RunServesStatusUntilSessionEnds(t *testing.T) {
	cfg := testConfig(t)
	cfg.JournalPath = ""
	cfg.StatusAddr = "127.0.0.1:0"
	s, err := NewServices("eyecontrol", cfg, cfg.PeerIP)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}

	frames := newFrames(t, 3)
	det := detector.NewMockDetector()
	det.SetFaces([]detector.FaceLandmarks{detector.OpenEyesFace()})
	sink := display.NewHeadlessSink(s.Frames)
	sender := &recordingSender{}

	session := NewGestureSession(GestureConfig{
		Hardware:   Hardware{Camera: capture.NewMockCamera(frames, false), Detector: det, Sink: sink},
		Classifier: gesture.NewMockClassifier(gesture.Up),
		Sender:     sender,
		Gate:       fixedGate(true),
		Pauser:     s.Tracker,
		Log:        quietLog(),
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), session) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return when the session ended")
	}
	if _, seq := s.Frames.Latest(); seq != 3 {
		t.Errorf("frame buffer seq = %d, want 3", seq)
	}
}
