package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/axellelanca/visittracker/internal/metrics"
)

// EnrichmentMonitor periodically checks that the geolocation service can be reached.
// It maintains a state map to track status changes and notify when they occur.
type EnrichmentMonitor struct {
	targets     []string        // URLs to check, usually the lookup service root
	interval    time.Duration   // How often to check the targets
	knownStates map[string]bool // Cache of previous states (URL -> reachable/not reachable)
	mu          sync.Mutex      // Protects concurrent access to knownStates map
	httpClient  *http.Client    // HTTP client for making requests
}

// NewEnrichmentMonitor creates and returns a new instance of EnrichmentMonitor.
// interval parameter determines how frequently targets will be checked.
func NewEnrichmentMonitor(interval time.Duration, targets ...string) *EnrichmentMonitor {
	return &EnrichmentMonitor{
		targets:     targets,
		interval:    interval,
		knownStates: make(map[string]bool),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Start runs the monitoring loop until ctx is cancelled.
func (m *EnrichmentMonitor) Start(ctx context.Context) {
	logging.Info().Dur("interval", m.interval).Msg("[MONITOR] Starting enrichment monitor")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Execute an immediate check on startup before waiting for the first tick
	m.checkTargets(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("[MONITOR] Enrichment monitor stopped")
			return
		case <-ticker.C:
			m.checkTargets(ctx)
		}
	}
}

// KnownState returns the last observed state of target.
func (m *EnrichmentMonitor) KnownState(target string) (reachable, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reachable, known = m.knownStates[target]
	return reachable, known
}

// checkTargets checks every target and logs state changes.
func (m *EnrichmentMonitor) checkTargets(ctx context.Context) {
	logging.Debug().Msg("[MONITOR] Starting enrichment service verification")

	allUp := len(m.targets) > 0
	for _, target := range m.targets {
		currentState := m.isReachable(ctx, target)
		allUp = allUp && currentState

		m.mu.Lock()
		previousState, exists := m.knownStates[target]
		m.knownStates[target] = currentState
		m.mu.Unlock()

		if !exists {
			logging.Info().Str("target", target).Str("state", formatState(currentState)).Msg("[MONITOR] Initial state")
			continue
		}

		if currentState != previousState {
			logging.Warn().
				Str("target", target).
				Str("from", formatState(previousState)).
				Str("to", formatState(currentState)).
				Msg("[NOTIFICATION] Enrichment service state changed")
		}
	}
	metrics.SetEnrichmentServiceUp(allUp)
}

// isReachable performs an HTTP HEAD request against url.
// 2xx and 3xx answers count as reachable.
func (m *EnrichmentMonitor) isReachable(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		logging.Warn().Err(err).Str("target", url).Msg("[MONITOR] Error creating request")
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		logging.Debug().Err(err).Str("target", url).Msg("[MONITOR] Error reaching target")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// formatState converts the boolean state to a readable label.
func formatState(reachable bool) string {
	if reachable {
		return "REACHABLE"
	}
	return "UNREACHABLE"
}
