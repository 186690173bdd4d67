// Package metrics exposes the Prometheus collectors of the query pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sectionrag"

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Queries answered, by mode and outcome.",
	}, []string{"mode", "outcome"})

	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "End-to-end query latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"mode"})

	DominantSections = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dominant_sections",
		Help:      "Dominant sections detected per query.",
		Buckets:   []float64{0, 1, 2, 3, 5},
	})

	SweepFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_failures_total",
		Help:      "Section sweeps that failed and were skipped.",
	})

	ChunksIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_indexed_total",
		Help:      "Chunks written to the vector store by ingestion.",
	})

	SectionCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "section_cache_lookups_total",
		Help:      "Section cache lookups, by result (hit, miss, error).",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		QueriesTotal,
		QueryDuration,
		DominantSections,
		SweepFailures,
		ChunksIndexed,
		SectionCacheLookups,
	)
}

// ObserveQuery records the outcome and latency of one query.
func ObserveQuery(mode, outcome string, started time.Time) {
	QueriesTotal.WithLabelValues(mode, outcome).Inc()
	QueryDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}
