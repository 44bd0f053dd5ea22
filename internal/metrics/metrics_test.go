package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter(t *testing.T) {
	e := NewExporter()
	e.ObserveAttempt("success")
	e.ObserveAttempt("failure")
	e.ObserveAttempt("failure")
	e.ObserveMission("Completed", 3*time.Second)
	e.ObserveSearch("hybrid", 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `nexus_enricher_attempts_total{result="success"} 1`)
	assert.Contains(t, body, `nexus_enricher_attempts_total{result="failure"} 2`)
	assert.Contains(t, body, `nexus_enricher_missions_total{status="Completed"} 1`)
	assert.Contains(t, body, `nexus_retriever_requests_total{strategy="hybrid"} 1`)
	assert.Contains(t, body, "nexus_enricher_mission_seconds_bucket")
}

func TestExporterIsolatedRegistry(t *testing.T) {
	// Two exporters never collide: each owns its registry.
	a := NewExporter()
	b := NewExporter()
	a.ObserveAttempt("success")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)
	assert.NotContains(t, rec.Body.String(), `result="success"`)
}
