// Package netmon watches device connectivity for the sync engine. It only
// reports transitions; deciding whether to sync on reconnect belongs to an
// external scheduler.
package netmon

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hoardlabs/hoard/internal/log"
)

// Status is a connectivity snapshot.
type Status struct {
	IsOnline bool
	IsWifi   bool
}

// Prober performs a single connectivity check.
type Prober interface {
	Probe(ctx context.Context) Status
}

// Monitor polls a Prober and invokes a callback on status transitions.
// Start and Stop are idempotent; at most one subscription loop runs.
type Monitor struct {
	prober   Prober
	interval time.Duration
	onChange func(Status)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    Status
	probed  bool
}

// New creates a monitor. onChange may be nil when only polling via Check is
// wanted.
func New(prober Prober, interval time.Duration, onChange func(Status)) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{prober: prober, interval: interval, onChange: onChange}
}

// Check probes connectivity immediately and records the result.
func (m *Monitor) Check(ctx context.Context) Status {
	status := m.prober.Probe(ctx)

	m.mu.Lock()
	m.last = status
	m.probed = true
	m.mu.Unlock()

	return status
}

// Last returns the most recent status, probing once if never probed.
func (m *Monitor) Last(ctx context.Context) Status {
	m.mu.Lock()
	if m.probed {
		status := m.last
		m.mu.Unlock()
		return status
	}
	m.mu.Unlock()
	return m.Check(ctx)
}

// Start launches the polling loop. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.loop(ctx, done)
}

// Stop halts the polling loop and waits for it to exit. Calling Stop on a
// stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			previous, hadPrevious := m.snapshot()
			current := m.Check(ctx)
			if hadPrevious && current == previous {
				continue
			}
			log.Debugf("netmon: status changed online=%v wifi=%v", current.IsOnline, current.IsWifi)
			if m.onChange != nil {
				m.onChange(current)
			}
		}
	}
}

func (m *Monitor) snapshot() (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.probed
}

// DialProber checks reachability of a host with a short TCP dial and
// classifies the active interface as Wi-Fi by name. The Wi-Fi heuristic is
// best-effort; platforms with a real network-type API should inject their
// own Prober.
type DialProber struct {
	Addr    string // host:port to dial
	Timeout time.Duration
}

// NewDialProber builds a prober against the API endpoint's host.
func NewDialProber(apiURL string) *DialProber {
	addr := "api.hoard.app:443"
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Host
		if u.Port() == "" {
			if u.Scheme == "http" {
				host += ":80"
			} else {
				host += ":443"
			}
		}
		addr = host
	}
	return &DialProber{Addr: addr, Timeout: 3 * time.Second}
}

// Probe dials the configured address once.
func (p *DialProber) Probe(ctx context.Context) Status {
	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return Status{IsOnline: false}
	}
	_ = conn.Close()
	return Status{IsOnline: true, IsWifi: activeInterfaceIsWireless()}
}

// wirelessPrefixes match common wireless interface names (wlan0, wlp3s0,
// wifi0).
var wirelessPrefixes = []string{"wl", "wlan", "wifi", "ath"}

func activeInterfaceIsWireless() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		name := strings.ToLower(iface.Name)
		for _, prefix := range wirelessPrefixes {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
	}
	return false
}
