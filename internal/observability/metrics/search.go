package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics contains the fan-out search metrics.
// A nil *SearchMetrics is valid and records nothing.
type SearchMetrics struct {
	Duration           *prometheus.HistogramVec
	CollectionFailures *prometheus.CounterVec
	Hits               prometheus.Counter
}

// NewSearchMetrics creates and registers the search metrics.
func NewSearchMetrics(registry prometheus.Registerer) (*SearchMetrics, error) {
	m := &SearchMetrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of fan-out operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operation"}),
		CollectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_collection_failures_total",
			Help:      "Per-collection query failures isolated by the fan-out.",
		}, []string{"collection"}),
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_hits_total",
			Help:      "Total number of records returned by searches.",
		}),
	}

	for _, c := range []prometheus.Collector{m.Duration, m.CollectionFailures, m.Hits} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register search metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveSearch records a completed fan-out and the number of hits it produced.
func (m *SearchMetrics) ObserveSearch(operation string, d time.Duration, hits int) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(operation).Observe(d.Seconds())
	m.Hits.Add(float64(hits))
}

// RecordCollectionFailure counts an isolated collection failure.
func (m *SearchMetrics) RecordCollectionFailure(collection string) {
	if m == nil {
		return
	}
	m.CollectionFailures.WithLabelValues(collection).Inc()
}
