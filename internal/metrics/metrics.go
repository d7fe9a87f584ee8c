// Package metrics exposes Prometheus metrics for the generation pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	GenerationsTotal     *prometheus.CounterVec
	GenerationDuration   *prometheus.HistogramVec
	BackendRetriesTotal  prometheus.Counter
	ComplianceViolations *prometheus.CounterVec
	RetrievedChunks      *prometheus.HistogramVec
	ReindexTotal         *prometheus.CounterVec
	IndexedChunks        *prometheus.GaugeVec
	DocumentsStoredTotal prometheus.Counter
}

// New creates and registers the metrics with the default registry. It uses
// sync.Once so repeated calls return the same collectors.
//
// Metrics:
//   - karte_generations_total{document_type,outcome}
//   - karte_generation_duration_seconds{backend}
//   - karte_backend_retries_total
//   - karte_compliance_violations_total{rule}
//   - karte_retrieved_chunks{document_type}
//   - karte_reindex_total{outcome}
//   - karte_indexed_chunks{tenant}
//   - karte_documents_stored_total
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			GenerationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "karte_generations_total",
					Help: "Generation requests by document type and outcome",
				},
				[]string{"document_type", "outcome"}, // outcome is "ok" or an error code
			),
			GenerationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "karte_generation_duration_seconds",
					Help:    "Time spent producing raw document text",
					Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
				},
				[]string{"backend"}, // "openai" or "template"
			),
			BackendRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "karte_backend_retries_total",
				Help: "Chat completion calls retried after a transport failure",
			}),
			ComplianceViolations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "karte_compliance_violations_total",
					Help: "Generated documents rejected by the safety filter",
				},
				[]string{"rule"},
			),
			RetrievedChunks: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "karte_retrieved_chunks",
					Help:    "Chunks returned by scoped retrieval",
					Buckets: []float64{0, 1, 2, 3, 5, 10},
				},
				[]string{"document_type"},
			),
			ReindexTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "karte_reindex_total",
					Help: "Tenant index builds by outcome",
				},
				[]string{"outcome"},
			),
			IndexedChunks: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "karte_indexed_chunks",
					Help: "Chunks in the live index of each tenant",
				},
				[]string{"tenant"},
			),
			DocumentsStoredTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "karte_documents_stored_total",
				Help: "Documents persisted by the document store",
			}),
		}
	})
	return globalMetrics
}

// Generation records the outcome of one generation request.
func (m *Metrics) Generation(documentType, outcome string) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(documentType, outcome).Inc()
}

// GenerationTime records how long a backend took.
func (m *Metrics) GenerationTime(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// BackendRetry counts one retried backend call.
func (m *Metrics) BackendRetry() {
	if m == nil {
		return
	}
	m.BackendRetriesTotal.Inc()
}

// Violation counts one safety rejection.
func (m *Metrics) Violation(rule string) {
	if m == nil {
		return
	}
	m.ComplianceViolations.WithLabelValues(rule).Inc()
}

// Retrieved records the size of a retrieval result.
func (m *Metrics) Retrieved(documentType string, n int) {
	if m == nil {
		return
	}
	m.RetrievedChunks.WithLabelValues(documentType).Observe(float64(n))
}

// Reindexed records a tenant build and, on success, its chunk count.
func (m *Metrics) Reindexed(tenant string, chunks int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReindexTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReindexTotal.WithLabelValues("ok").Inc()
	m.IndexedChunks.WithLabelValues(tenant).Set(float64(chunks))
}

// Stored counts one persisted document.
func (m *Metrics) Stored() {
	if m == nil {
		return
	}
	m.DocumentsStoredTotal.Inc()
}
