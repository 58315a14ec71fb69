package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SearchMetrics records the online search path and offline ingestion. It
// satisfies retrieval.Recorder.
type SearchMetrics struct {
	registry *prometheus.Registry

	searchTotal     *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	fallbackTotal   *prometheus.CounterVec
	stageCandidates *prometheus.HistogramVec
	ingestTotal     *prometheus.CounterVec
	ingestedChunks  *prometheus.CounterVec
}

func NewSearchMetrics(service string) *SearchMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "techplus",
			Subsystem:   "retrieval",
			Name:        "search_total",
			Help:        "Total searches by corpus.",
			ConstLabels: constLabels,
		},
		[]string{"corpus"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "techplus",
			Subsystem:   "retrieval",
			Name:        "search_duration_seconds",
			Help:        "Search duration in seconds by corpus.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			ConstLabels: constLabels,
		},
		[]string{"corpus"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "techplus",
			Subsystem:   "retrieval",
			Name:        "fallback_total",
			Help:        "Search stages that degraded to their fallback output.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	stageCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "techplus",
			Subsystem:   "retrieval",
			Name:        "candidates",
			Help:        "Candidates left after each search stage.",
			Buckets:     []float64{0, 1, 2, 5, 10, 20, 50, 100},
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "techplus",
			Subsystem:   "ingest",
			Name:        "documents_total",
			Help:        "Ingested documents by kind and status.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "status"},
	)
	ingestedChunks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "techplus",
			Subsystem:   "ingest",
			Name:        "chunks_total",
			Help:        "Chunks written to the index by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	registry.MustRegister(searchTotal, searchDuration, fallbackTotal, stageCandidates, ingestTotal, ingestedChunks)

	return &SearchMetrics{
		registry:        registry,
		searchTotal:     searchTotal,
		searchDuration:  searchDuration,
		fallbackTotal:   fallbackTotal,
		stageCandidates: stageCandidates,
		ingestTotal:     ingestTotal,
		ingestedChunks:  ingestedChunks,
	}
}

func (m *SearchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SearchMetrics) SearchCompleted(corpus string, elapsed time.Duration) {
	m.searchTotal.WithLabelValues(corpus).Inc()
	m.searchDuration.WithLabelValues(corpus).Observe(elapsed.Seconds())
}

func (m *SearchMetrics) StageFallback(stage string) {
	m.fallbackTotal.WithLabelValues(stage).Inc()
}

func (m *SearchMetrics) StageCandidates(stage string, n int) {
	m.stageCandidates.WithLabelValues(stage).Observe(float64(n))
}

// DocumentIngested records one ingested document. chunks is ignored on error.
func (m *SearchMetrics) DocumentIngested(kind string, chunks int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ingestTotal.WithLabelValues(kind, status).Inc()
	if err == nil {
		m.ingestedChunks.WithLabelValues(kind).Add(float64(chunks))
	}
}
