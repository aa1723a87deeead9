// Package connectivity tracks whether the news API is reachable.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Monitor probes a URL and remembers the last observed reachability.
// Subscribers hear about changes only.
type Monitor struct {
	probeURL string
	interval time.Duration
	http     *http.Client
	logger   *slog.Logger
	group    singleflight.Group

	mu        sync.Mutex
	connected bool
	nextID    int
	listeners map[int]func(bool)
}

// NewMonitor starts in the connected state so the first fetch is attempted
// before any probe has finished.
func NewMonitor(probeURL string, interval time.Duration, httpClient *http.Client, logger *slog.Logger) *Monitor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probeURL:  probeURL,
		interval:  interval,
		http:      httpClient,
		logger:    logger,
		connected: true,
		listeners: make(map[int]func(bool)),
	}
}

// IsConnected returns the last known state without probing.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe registers fn for connectivity changes. fn runs on the goroutine
// that observed the change.
func (m *Monitor) Subscribe(fn func(connected bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Set records an externally observed state, for example from a platform
// reachability callback.
func (m *Monitor) Set(connected bool) {
	m.mu.Lock()
	if m.connected == connected {
		m.mu.Unlock()
		return
	}
	m.connected = connected
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", "connected", connected)
	for _, fn := range listeners {
		fn(connected)
	}
}

// Check probes the URL once and records the result. Concurrent callers share
// a single probe.
func (m *Monitor) Check(ctx context.Context) bool {
	v, _, _ := m.group.Do("probe", func() (any, error) {
		return m.probe(ctx), nil
	})
	connected := v.(bool)
	m.Set(connected)
	return connected
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.logger.Warn("build connectivity probe", "url", m.probeURL, "error", err)
		return false
	}
	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.Debug("connectivity probe failed", "url", m.probeURL, "error", err)
		return false
	}
	resp.Body.Close()
	// Any HTTP answer, even an error status, proves the network path works.
	return true
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
