package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CoverMetrics contains all Prometheus metrics related to cover resolution.
// A nil *CoverMetrics is valid and records nothing.
type CoverMetrics struct {
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheEntries      prometheus.Gauge
	ProviderResults   *prometheus.CounterVec
	ResolveAttempts   prometheus.Counter
	ResolveDuration   prometheus.Histogram
	DeliveryFallbacks *prometheus.CounterVec
	UpstreamRequests  *prometheus.CounterVec
}

// NewCoverMetrics creates and registers the cover metrics.
func NewCoverMetrics(registry prometheus.Registerer) (*CoverMetrics, error) {
	m := &CoverMetrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cover_cache_hits_total",
			Help:      "Total number of cover cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cover_cache_misses_total",
			Help:      "Total number of cover cache misses.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cover_cache_entries",
			Help:      "Current number of entries in the cover cache.",
		}),
		ProviderResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cover_provider_results_total",
			Help:      "Cover provider lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ResolveAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cover_resolve_attempts_total",
			Help:      "Total number of provider chain passes, retries included.",
		}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "cover_resolve_duration_seconds",
			Help:      "Duration of cover resolutions in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		DeliveryFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "delivery_fallbacks_total",
			Help:      "Image deliveries that fell back to a lower tier.",
		}, []string{"tier"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound provider and image requests by host and status class.",
		}, []string{"host", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.CacheHits, m.CacheMisses, m.CacheEntries, m.ProviderResults,
		m.ResolveAttempts, m.ResolveDuration, m.DeliveryFallbacks, m.UpstreamRequests,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register cover metrics: %w", err)
		}
	}
	return m, nil
}

// RecordCacheLookup counts a cache hit or miss.
func (m *CoverMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// SetCacheEntries updates the cache size gauge.
func (m *CoverMetrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// RecordProviderResult counts one provider lookup outcome.
func (m *CoverMetrics) RecordProviderResult(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderResults.WithLabelValues(provider, outcome).Inc()
}

// RecordAttempt counts one pass over the provider chain.
func (m *CoverMetrics) RecordAttempt() {
	if m == nil {
		return
	}
	m.ResolveAttempts.Inc()
}

// ObserveResolve records the duration of a resolution.
func (m *CoverMetrics) ObserveResolve(d time.Duration) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(d.Seconds())
}

// RecordDeliveryFallback counts a delivery that dropped to tier.
func (m *CoverMetrics) RecordDeliveryFallback(tier string) {
	if m == nil {
		return
	}
	m.DeliveryFallbacks.WithLabelValues(tier).Inc()
}

// RecordUpstreamRequest counts one outbound request. err takes precedence
// over resp and is counted as status "error".
func (m *CoverMetrics) RecordUpstreamRequest(host string, resp *http.Response, err error) {
	if m == nil {
		return
	}
	status := StatusError
	if err == nil && resp != nil {
		status = fmt.Sprintf("%dxx", resp.StatusCode/100)
	}
	m.UpstreamRequests.WithLabelValues(host, status).Inc()
}
