package freshness

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the resolver does with its sources and slots.
// A nil *Metrics records nothing.
type Metrics struct {
	fetches   *prometheus.CounterVec
	lookups   *prometheus.CounterVec
	discarded *prometheus.CounterVec
}

// NewMetrics creates the resolver metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freshness",
			Name:      "source_fetches_total",
			Help:      "Catalog source calls by policy and result.",
		}, []string{"policy", "result"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freshness",
			Name:      "slot_lookups_total",
			Help:      "Scope slot lookups by policy and whether a stored outcome was reused.",
		}, []string{"policy", "cache"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freshness",
			Name:      "discarded_results_total",
			Help:      "Fetch results dropped because their consumer or scope went away.",
		}, []string{"policy"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.lookups, m.discarded)
	}
	return m
}

func (m *Metrics) fetched(p Policy, o FetchOutcome) {
	if m == nil {
		return
	}
	result := "success"
	if !o.OK() {
		result = ReasonCode(o.Err)
	}
	m.fetches.WithLabelValues(p.String(), result).Inc()
}

func (m *Metrics) lookedUp(p Policy, hit bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if hit {
		cache = "hit"
	}
	m.lookups.WithLabelValues(p.String(), cache).Inc()
}

func (m *Metrics) dropped(p Policy) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(p.String()).Inc()
}
