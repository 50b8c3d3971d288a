// Package delivery sends gestures and relay triggers to the microcontroller with
// bounded retries and linear backoff.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Delivery defaults.
const (
	DefaultMaxAttempts    = 5
	DefaultAttemptTimeout = 3 * time.Second
)

// ErrPermanent marks a failure that retrying cannot fix, such as a 4xx status.
var ErrPermanent = errors.New("permanent delivery failure")

// Kind identifies what a delivery carries.
type Kind string

const (
	KindGesture Kind = "gesture"
	KindRelay   Kind = "relay"
	KindToggle  Kind = "toggle"
)

// Request is one payload to deliver.
type Request struct {
	Kind    Kind
	Method  string
	URL     string
	Body    []byte
	Payload string // label or trigger name, for logs and the journal
}

// Result describes the outcome of one Deliver call.
type Result struct {
	Kind     Kind
	Payload  string
	Attempts int
	Success  bool
	Status   int
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Recorder observes every finished delivery.
type Recorder interface {
	Record(Result)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Result)

// Record calls f(r).
func (f RecorderFunc) Record(r Result) { f(r) }

// Config holds the retry policy and collaborators of a Deliverer.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	HTTPClient     *http.Client
	// Sleep waits between attempts. It returns early with an error when ctx ends.
	Sleep     func(ctx context.Context, d time.Duration) error
	Recorders []Recorder
	Log       *logrus.Entry
}

// Deliverer performs HTTP deliveries with retries.
type Deliverer struct {
	config Config
}

// New creates a Deliverer, filling in defaults for zero values.
func New(config Config) *Deliverer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultAttemptTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = newHTTPClient()
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}
	if config.Log == nil {
		config.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Deliverer{config: config}
}

// Backoff returns the pause after the given failed attempt (1-based):
// 1s after the first, 2s after the second, and so on.
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

// Deliver tries req up to MaxAttempts times. It never sleeps after the final
// attempt and stops early on permanent failures or when ctx ends.
func (d *Deliverer) Deliver(ctx context.Context, req Request) Result {
	res := Result{Kind: req.Kind, Payload: req.Payload, Started: time.Now()}
	log := d.config.Log.WithFields(logrus.Fields{"kind": req.Kind, "payload": req.Payload})

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		res.Attempts = attempt

		status, err := d.attempt(ctx, req)
		res.Status = status
		res.Err = err
		if err == nil {
			res.Success = true
			break
		}

		log.WithError(err).WithField("attempt", attempt).Warn("delivery attempt failed")

		if errors.Is(err, ErrPermanent) || attempt == d.config.MaxAttempts {
			break
		}
		if err := d.config.Sleep(ctx, Backoff(attempt)); err != nil {
			res.Err = err
			break
		}
	}

	res.Duration = time.Since(res.Started)
	if !res.Success {
		log.WithError(res.Err).WithField("attempts", res.Attempts).Error("delivery failed, dropping payload")
	}

	for _, r := range d.config.Recorders {
		r.Record(res)
	}
	return res
}

// attempt performs a single request under its own timeout.
func (d *Deliverer) attempt(ctx context.Context, req Request) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.AttemptTimeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrPermanent, err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.config.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("peer returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return resp.StatusCode, fmt.Errorf("%w: peer returned %d", ErrPermanent, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// newHTTPClient returns a client tuned for a single slow peer on a local link.
// Attempt deadlines come from the request context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   2 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}
