// Package metrics exposes Prometheus instrumentation for the verification
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors on a private registry so tests can build
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// Verdicts counts verification outcomes by status.
	Verdicts *prometheus.CounterVec

	// CacheHits counts verdicts served from the Redis cache.
	CacheHits prometheus.Counter
}

// New builds a metrics bundle with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slipverify",
			Name:      "verdicts_total",
			Help:      "Slip verification verdicts by status.",
		}, []string{"status"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slipverify",
			Name:      "verdict_cache_hits_total",
			Help:      "Verdicts served from the cache without re-verification.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
