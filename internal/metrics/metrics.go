// Package metrics provides Prometheus metrics for the enrichment pipeline
// and the retrieval engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter collects and exports service metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	enrichmentAttempts *prometheus.CounterVec
	enrichmentOutcomes *prometheus.CounterVec
	enrichmentLatency  prometheus.Histogram

	searchRequests *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
}

// NewExporter creates a new metrics exporter with its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		enrichmentAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "enricher",
				Name:      "attempts_total",
				Help:      "Enrichment attempts by result",
			},
			[]string{"result"},
		),
		enrichmentOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "enricher",
				Name:      "missions_total",
				Help:      "Finished missions by terminal status",
			},
			[]string{"status"},
		),
		enrichmentLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nexus",
				Subsystem: "enricher",
				Name:      "mission_seconds",
				Help:      "Wall time from dequeue to terminal write",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		searchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "retriever",
				Name:      "requests_total",
				Help:      "List requests by strategy",
			},
			[]string{"strategy"},
		),
		searchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nexus",
				Subsystem: "retriever",
				Name:      "latency_seconds",
				Help:      "List request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"strategy"},
		),
	}

	registry.MustRegister(
		e.enrichmentAttempts,
		e.enrichmentOutcomes,
		e.enrichmentLatency,
		e.searchRequests,
		e.searchLatency,
	)
	return e
}

// ObserveAttempt records one enrichment attempt.
func (e *Exporter) ObserveAttempt(result string) {
	e.enrichmentAttempts.WithLabelValues(result).Inc()
}

// ObserveMission records a finished mission and its processing time.
func (e *Exporter) ObserveMission(status string, elapsed time.Duration) {
	e.enrichmentOutcomes.WithLabelValues(status).Inc()
	e.enrichmentLatency.Observe(elapsed.Seconds())
}

// ObserveSearch records one list request.
func (e *Exporter) ObserveSearch(strategy string, elapsed time.Duration) {
	e.searchRequests.WithLabelValues(strategy).Inc()
	e.searchLatency.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// Handler returns the /metrics HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
