package network

import (
	"context"
	"math"
	"strconv"
	"time"
)

// Prober reports whether the peer answers right now.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// PingProber sends a single ICMP echo to a fixed address using the system ping.
type PingProber struct {
	ip      string
	timeout time.Duration
	runner  Runner
}

// NewPingProber creates a prober for ip. Timeouts under one second are rounded up
// because ping's -W flag takes whole seconds.
func NewPingProber(ip string, timeout time.Duration, runner Runner) *PingProber {
	if runner == nil {
		runner = NewExecRunner(timeout + time.Second)
	}
	return &PingProber{ip: ip, timeout: timeout, runner: runner}
}

// Args returns the ping arguments used for a probe.
func (p *PingProber) Args() []string {
	secs := int(math.Ceil(p.timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return []string{"-c", "1", "-W", strconv.Itoa(secs), p.ip}
}

// Reachable returns true when ping exits with status 0.
func (p *PingProber) Reachable(ctx context.Context) bool {
	_, err := p.runner.Run(ctx, "ping", p.Args()...)
	return err == nil
}
