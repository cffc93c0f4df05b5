package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/axellelanca/visittracker/internal/metrics"
)

func TestCheckTargetsTracksStateChanges(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	m := NewEnrichmentMonitor(time.Hour, server.URL)
	ctx := context.Background()

	m.checkTargets(ctx)
	if up, known := m.KnownState(server.URL); !known || !up {
		t.Fatalf("KnownState() = %v, %v; want reachable", up, known)
	}
	if got := testutil.ToFloat64(metrics.EnrichmentServiceUp); got != 1 {
		t.Errorf("gauge = %v, want 1", got)
	}

	healthy.Store(false)
	m.checkTargets(ctx)
	if up, _ := m.KnownState(server.URL); up {
		t.Error("KnownState() reachable after failure")
	}
	if got := testutil.ToFloat64(metrics.EnrichmentServiceUp); got != 0 {
		t.Errorf("gauge = %v, want 0", got)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	m := NewEnrichmentMonitor(10*time.Millisecond, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestUnreachableTarget(t *testing.T) {
	m := NewEnrichmentMonitor(time.Hour, "http://127.0.0.1:1")
	m.checkTargets(context.Background())
	if up, known := m.KnownState("http://127.0.0.1:1"); !known || up {
		t.Errorf("KnownState() = %v, %v; want known and unreachable", up, known)
	}
}
