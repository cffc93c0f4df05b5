// Package metrics declares the prometheus collectors of the visit tracker.
// Collectors are registered on the default registry and exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Visit ingestion
	VisitsEntered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visittracker_visits_entered_total",
			Help: "Total number of visit records created",
		},
	)

	LifecycleUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visittracker_lifecycle_updates_total",
			Help: "Session lifecycle updates by event and whether a visit matched",
		},
		[]string{"event", "result"}, // event: action, location, leave; result: applied, unknown_id
	)

	// Enrichment
	EnrichmentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visittracker_enrichment_results_total",
			Help: "Geolocation enrichment outcomes",
		},
		[]string{"outcome"}, // "success", "skipped", "rate_limited", "breaker_open", "failure"
	)

	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visittracker_enrichment_duration_seconds",
			Help:    "Duration of geolocation lookups in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
	)

	ConnectionTypes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visittracker_connection_types_total",
			Help: "Connection types assigned to enriched visits",
		},
		[]string{"type"},
	)

	EnrichmentServiceUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visittracker_enrichment_service_up",
			Help: "1 when the last monitor check reached the lookup service, 0 otherwise",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visittracker_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visittracker_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visittracker_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visittracker_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visittracker_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEnrichment records the outcome of one enrichment attempt.
func RecordEnrichment(outcome string, duration time.Duration) {
	EnrichmentResults.WithLabelValues(outcome).Inc()
	if duration > 0 {
		EnrichmentDuration.Observe(duration.Seconds())
	}
}

// RecordLifecycleUpdate records an action, location or leave event.
func RecordLifecycleUpdate(event string, matched bool) {
	result := "applied"
	if !matched {
		result = "unknown_id"
	}
	LifecycleUpdates.WithLabelValues(event, result).Inc()
}

// SetEnrichmentServiceUp records the last monitor check result.
func SetEnrichmentServiceUp(up bool) {
	if up {
		EnrichmentServiceUp.Set(1)
		return
	}
	EnrichmentServiceUp.Set(0)
}
