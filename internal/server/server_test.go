package server

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ayusman/eyecontrol/internal/delivery"
	"github.com/ayusman/eyecontrol/internal/display"
	"github.com/ayusman/eyecontrol/internal/status"
	"github.com/ayusman/eyecontrol/internal/store"
)

func quietLog() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestServer_Health(t *testing.T) {
	s := New(Config{Log: quietLog()})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_Status(t *testing.T) {
	var connected atomic.Bool
	tracker := status.NewTracker(connected.Load)
	s := New(Config{Tracker: tracker, Log: quietLog()})

	get := func() status.Snapshot {
		t.Helper()
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d", rec.Code)
		}
		var snap status.Snapshot
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return snap
	}

	if get().Connected {
		t.Error("expected connected=false before the monitor reports")
	}

	connected.Store(true)
	tracker.Record(delivery.Result{Kind: delivery.KindGesture, Payload: "left", Success: true, Attempts: 1})

	snap := get()
	if !snap.Connected || snap.LastGesture != "left" || snap.Delivered != 1 {
		t.Errorf("status = %+v", snap)
	}
}

func TestServer_Events(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	journal := store.NewJournal(st, quietLog())
	for _, label := range []string{"up", "down", "center"} {
		journal.Record(delivery.Result{Kind: delivery.KindGesture, Payload: label, Success: true, Attempts: 1, Started: time.Now()})
	}

	s := New(Config{Store: st, Log: quietLog()})

	t.Run("limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=2", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d", rec.Code)
		}

		var body struct {
			Events []store.Event `json:"events"`
			Stats  store.Stats   `json:"stats"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Events) != 2 {
			t.Errorf("got %d events, want 2", len(body.Events))
		}
		if body.Stats.Total != 3 {
			t.Errorf("stats total = %d, want 3", body.Stats.Total)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, q := range []string{"abc", "0", "-3"} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit="+q, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: status = %d, want 400", q, rec.Code)
			}
		}
	})
}

func TestServer_OptionalRoutes(t *testing.T) {
	s := New(Config{Log: quietLog()})

	for _, path := range []string{"/api/events", "/api/ws", "/api/stream", "/api/unknown"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}
}

func TestServer_RateLimit(t *testing.T) {
	s := New(Config{Rate: 1, Burst: 2, Log: quietLog()})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "10.0.0.7:5000"
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.8:5000"
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}
}

func TestHub_BroadcastsDeliveries(t *testing.T) {
	hub := NewHub(quietLog())
	ts := httptest.NewServer(New(Config{Hub: hub, Log: quietLog()}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var _ delivery.Recorder = hub
	hub.Record(delivery.Result{Kind: delivery.KindToggle, Payload: "toggle", Attempts: 3, Err: errors.New("timeout")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg EventMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Kind != "toggle" || msg.Success || msg.Attempts != 3 || msg.Error != "timeout" {
		t.Errorf("message = %+v", msg)
	}

	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("Clients() after Close = %d, want 0", hub.Clients())
	}
}

func TestStream_WritesLatestFrame(t *testing.T) {
	frames := display.NewFrameBuffer()
	frames.Store([]byte{0xff, 0xd8, 0xff, 0xd9})

	ts := httptest.NewServer(New(Config{Frames: frames, Log: quietLog()}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	want := []string{"--frame\r\n", "Content-Type: image/jpeg\r\n", "Content-Length: 4\r\n"}
	for _, w := range want {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line != w {
			t.Errorf("line = %q, want %q", line, w)
		}
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := New(Config{Hub: NewHub(quietLog()), Log: quietLog()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
