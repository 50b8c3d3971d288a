// Package server provides the HTTP status surface of a running session.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/eyecontrol/internal/display"
	"github.com/ayusman/eyecontrol/internal/status"
	"github.com/ayusman/eyecontrol/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Rate limiting defaults per client IP.
const (
	DefaultRate  = rate.Limit(10)
	DefaultBurst = 20

	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Config holds the server configuration. Nil collaborators disable their
// routes.
type Config struct {
	Tracker *status.Tracker
	Store   *store.Store
	Hub     *Hub
	Frames  *display.FrameBuffer
	Rate    rate.Limit
	Burst   int
	Log     *logrus.Entry
}

// Server represents the HTTP status server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Rate == 0 {
		config.Rate = DefaultRate
	}
	if config.Burst <= 0 {
		config.Burst = DefaultBurst
	}
	if config.Log == nil {
		config.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()

	limiter := newRateLimiter(config.Rate, config.Burst)
	s.handler = limiter.middleware(config.Log, s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/events", s.handleEvents)
	}
	if s.config.Hub != nil {
		s.mux.Handle("/api/ws", s.config.Hub)
	}
	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus reports the connection flag and delivery counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Tracker == nil {
		writeJSON(w, http.StatusOK, status.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.config.Tracker.Snapshot())
}

// handleEvents returns the newest journal events and totals.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}

	repo := s.config.Store.Events()
	events, err := repo.Recent(limit)
	if err != nil {
		s.config.Log.WithError(err).Error("list events")
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	stats, err := repo.Stats()
	if err != nil {
		s.config.Log.WithError(err).Error("event stats")
		http.Error(w, "Failed to count events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*store.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"stats":  stats,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		// Streams and sockets end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.config.Log.WithField("addr", addr).Info("status server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
