package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLifecycleUpdate(t *testing.T) {
	before := testutil.ToFloat64(LifecycleUpdates.WithLabelValues("leave", "unknown_id"))

	RecordLifecycleUpdate("leave", false)
	RecordLifecycleUpdate("leave", true)

	if got := testutil.ToFloat64(LifecycleUpdates.WithLabelValues("leave", "unknown_id")); got != before+1 {
		t.Errorf("unknown_id counter = %v, want %v", got, before+1)
	}
}

func TestRecordEnrichment(t *testing.T) {
	before := testutil.ToFloat64(EnrichmentResults.WithLabelValues("skipped"))

	RecordEnrichment("skipped", 0)

	if got := testutil.ToFloat64(EnrichmentResults.WithLabelValues("skipped")); got != before+1 {
		t.Errorf("skipped counter = %v, want %v", got, before+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("POST", "/api/track/enter", 201, 15*time.Millisecond)

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/track/enter", "201")); got < 1 {
		t.Errorf("request counter = %v, want >= 1", got)
	}
}

func TestSetEnrichmentServiceUp(t *testing.T) {
	SetEnrichmentServiceUp(true)
	if got := testutil.ToFloat64(EnrichmentServiceUp); got != 1 {
		t.Errorf("gauge = %v, want 1", got)
	}
	SetEnrichmentServiceUp(false)
	if got := testutil.ToFloat64(EnrichmentServiceUp); got != 0 {
		t.Errorf("gauge = %v, want 0", got)
	}
}
