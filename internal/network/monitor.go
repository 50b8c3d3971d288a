package network

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultCheckInterval is the delay between reachability probes.
const DefaultCheckInterval = 15 * time.Second

// MonitorConfig holds the collaborators and timing for a Monitor.
type MonitorConfig struct {
	Prober           Prober
	Associator       Associator
	Interval         time.Duration
	AssociateOnStart bool
	// OnChange, when set, is called from the monitor goroutine after the flag flips.
	OnChange func(connected bool)
	Log      *logrus.Entry
}

// Monitor periodically probes the peer and re-associates while it is unreachable.
// The connected flag is written only by the monitor goroutine.
type Monitor struct {
	config    MonitorConfig
	connected atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a Monitor. The flag starts false until the first successful probe.
func NewMonitor(config MonitorConfig) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultCheckInterval
	}
	if config.Log == nil {
		config.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Monitor{config: config}
}

// Connected reports the result of the most recent probe.
func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

// Start runs the monitor in a background goroutine. Calling Start on a running
// monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		m.Run(ctx)
	}(m.done)
}

// Stop cancels the background goroutine and waits for it to return.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run blocks, probing once immediately and then on every interval, until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if m.config.AssociateOnStart && m.config.Associator != nil {
		m.config.Associator.Reassociate(ctx)
	}

	m.Check(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.config.Log.Debug("connection monitor stopped")
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check probes once, records the result and re-associates on failure.
// A probe cut short by cancellation leaves the flag untouched.
func (m *Monitor) Check(ctx context.Context) bool {
	ok := m.config.Prober.Reachable(ctx)
	if ctx.Err() != nil {
		return m.Connected()
	}

	if prev := m.connected.Swap(ok); prev != ok {
		m.config.Log.WithField("connected", ok).Info("connection state changed")
		if m.config.OnChange != nil {
			m.config.OnChange(ok)
		}
	}

	if !ok {
		m.config.Log.Warn("peer unreachable, reassociating")
		if m.config.Associator != nil {
			m.config.Associator.Reassociate(ctx)
		}
	}

	return ok
}
