package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics records extraction, parse and enrichment outcomes.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	registry *prometheus.Registry

	extractionAttempts *prometheus.CounterVec
	parseDuration      *prometheus.HistogramVec
	enrichmentTotal    *prometheus.CounterVec
	completeness       prometheus.Histogram
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	extractionAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvparser",
			Name:      "extraction_attempts_total",
			Help:      "Extraction strategy attempts by backend and status.",
		},
		[]string{"backend", "status"},
	)
	parseDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvparser",
			Name:      "parse_duration_seconds",
			Help:      "Full document parse duration in seconds by status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)
	enrichmentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvparser",
			Name:      "enrichment_total",
			Help:      "External enrichment calls by outcome.",
		},
		[]string{"outcome"},
	)
	completeness := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cvparser",
			Name:      "completeness_score",
			Help:      "Completeness score of parsed records.",
			Buckets:   []float64{0, 17, 34, 50, 67, 84, 100},
		},
	)

	registry.MustRegister(extractionAttempts, parseDuration, enrichmentTotal, completeness)

	return &PipelineMetrics{
		registry:           registry,
		extractionAttempts: extractionAttempts,
		parseDuration:      parseDuration,
		enrichmentTotal:    enrichmentTotal,
		completeness:       completeness,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObserveAttempt(backend string, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	m.extractionAttempts.WithLabelValues(backend, status).Inc()
}

func (m *PipelineMetrics) ObserveParse(duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	m.parseDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveEnrichment(outcome string) {
	if m == nil {
		return
	}
	m.enrichmentTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveCompleteness(score float64) {
	if m == nil {
		return
	}
	m.completeness.Observe(score)
}
