// Package metrics holds the Prometheus collectors shared by rule lookup and
// distribution. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "formdist"

type Metrics struct {
	lookupEntries *prometheus.CounterVec
	evaluations   *prometheus.CounterVec
	grants        *prometheus.CounterVec
	rulesLoaded   *prometheus.GaugeVec
	passDuration  prometheus.Histogram
}

// New creates and registers the collectors. A nil registerer returns nil.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}

	m := &Metrics{
		lookupEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "entries_total",
			Help:      "Rule records processed during lookup, by outcome",
		}, []string{"category", "result"}),

		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Rule entries evaluated against characters",
		}, []string{"category", "result"}),

		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grants_total",
			Help:      "Forms granted to characters",
		}, []string{"category"}),

		rulesLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_loaded",
			Help:      "Resolved rule entries per category",
		}, []string{"category"}),

		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "distribute",
			Name:      "pass_duration_seconds",
			Help:      "Time spent distributing to one character",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}

	registerer.MustRegister(
		m.lookupEntries,
		m.evaluations,
		m.grants,
		m.rulesLoaded,
		m.passDuration,
	)

	return m
}

func (m *Metrics) ObserveLookup(category, result string) {
	if m == nil {
		return
	}
	m.lookupEntries.WithLabelValues(category, result).Inc()
}

func (m *Metrics) ObserveEvaluation(category, result string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(category, result).Inc()
}

func (m *Metrics) ObserveGrants(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.grants.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) SetRulesLoaded(category string, n int) {
	if m == nil {
		return
	}
	m.rulesLoaded.WithLabelValues(category).Set(float64(n))
}

func (m *Metrics) ObservePass(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.Observe(elapsed.Seconds())
}
