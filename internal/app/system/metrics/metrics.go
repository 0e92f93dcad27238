// Package metrics exposes the service's Prometheus collectors. A nil
// *Metrics is valid and records nothing, which keeps tests and disabled
// deployments free of registry plumbing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

type Metrics struct {
	registry      *prometheus.Registry
	assignments   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	sortFallbacks *prometheus.CounterVec
	roster        prometheus.Gauge
}

// New builds a registry with the Go and process collectors plus the
// service's own.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wastehub_assignments_total",
			Help: "Report assignment attempts by outcome.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wastehub_transitions_total",
			Help: "Report status transitions by target status and outcome.",
		}, []string{"to", "result"}),
		sortFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wastehub_report_sort_fallback_total",
			Help: "Report list queries that fell back to unordered delivery.",
		}, []string{"query"}),
		roster: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wastehub_roster_subscriptions",
			Help: "Open live worker-roster subscriptions.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.assignments, m.transitions, m.sortFallbacks, m.roster,
	)
	return m
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Assignment(result string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, result).Inc()
}

func (m *Metrics) SortFallback(query string) {
	if m == nil {
		return
	}
	m.sortFallbacks.WithLabelValues(query).Inc()
}

func (m *Metrics) RosterOpened() {
	if m == nil {
		return
	}
	m.roster.Inc()
}

func (m *Metrics) RosterClosed() {
	if m == nil {
		return
	}
	m.roster.Dec()
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}
