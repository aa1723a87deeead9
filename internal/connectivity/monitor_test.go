package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestMonitor_StartsConnected(t *testing.T) {
	m := NewMonitor("http://127.0.0.1:0", time.Second, nil, quietLogger())
	if !m.IsConnected() {
		t.Fatal("expected monitor to start connected")
	}
}

func TestMonitor_CheckReachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	m := NewMonitor(ts.URL, time.Second, ts.Client(), quietLogger())
	m.Set(false)
	if !m.Check(context.Background()) {
		t.Fatal("expected reachable probe")
	}
	if !m.IsConnected() {
		t.Fatal("expected connected state after probe")
	}
}

func TestMonitor_CheckUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	m := NewMonitor(url, time.Second, nil, quietLogger())
	if m.Check(context.Background()) {
		t.Fatal("expected unreachable probe")
	}
	if m.IsConnected() {
		t.Fatal("expected offline state after failed probe")
	}
}

func TestMonitor_SubscribersHearChangesOnly(t *testing.T) {
	m := NewMonitor("http://127.0.0.1:0", time.Second, nil, quietLogger())

	var events []bool
	unsubscribe := m.Subscribe(func(connected bool) {
		events = append(events, connected)
	})

	m.Set(true)
	m.Set(false)
	m.Set(false)
	m.Set(true)
	unsubscribe()
	m.Set(false)

	if len(events) != 2 || events[0] != false || events[1] != true {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	var probes atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	}))
	defer ts.Close()

	m := NewMonitor(ts.URL, 10*time.Millisecond, ts.Client(), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if probes.Load() < 1 {
		t.Fatal("expected at least one probe")
	}
}

func TestMonitor_ConcurrentChecksShareOneProbe(t *testing.T) {
	var probes atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected method: %s", r.Method)
		}
		probes.Add(1)
		once.Do(func() { close(arrived) })
		<-release
	}))
	defer ts.Close()

	m := NewMonitor(ts.URL, time.Second, ts.Client(), quietLogger())
	m.Set(false)

	const callers = 8
	var started, done sync.WaitGroup
	results := make([]bool, callers)
	started.Add(callers)
	done.Add(callers)
	for i := range callers {
		go func() {
			defer done.Done()
			started.Done()
			results[i] = m.Check(context.Background())
		}()
	}

	started.Wait()
	<-arrived
	// Give the remaining callers time to join the in-flight probe.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if got := probes.Load(); got != 1 {
		t.Fatalf("expected one probe request, got %d", got)
	}
	for i, ok := range results {
		if !ok {
			t.Fatalf("caller %d saw unreachable", i)
		}
	}
	if !m.IsConnected() {
		t.Fatal("expected connected state after shared probe")
	}
}
