// Package metrics exposes the service's Prometheus collectors. Recording is
// fire-and-forget: nothing in the request path depends on a metric call
// succeeding.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the query and mutation paths record into.
// It is constructed once at startup and passed by reference to dependents;
// tests build their own instance against a private registry.
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter
	Mutations   *prometheus.CounterVec
}

// Mutation outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_cache_hits_total",
			Help: "Cache reads served without invoking the producer.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_cache_misses_total",
			Help: "Cache reads that invoked the producer.",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_cache_errors_total",
			Help: "Cache backend failures absorbed by falling through to the producer.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_mutations_total",
			Help: "Task mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(m.CacheHits, m.CacheMisses, m.CacheErrors, m.Mutations)
	return m
}

// NewNop creates collectors registered against a throwaway registry, for
// tests and tools that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// RecordMutation increments the mutation counter for one operation outcome.
func (m *Metrics) RecordMutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(operation, outcome).Inc()
}
