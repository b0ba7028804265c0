// Package metrics exposes dashboard activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forest-machine-map/pkg/machines"
	"forest-machine-map/pkg/session"
)

// Metrics is a session.Hook that counts view activity.
type Metrics struct {
	registry *prometheus.Registry

	sessions    prometheus.Gauge
	opened      prometheus.Counter
	filters     *prometheus.CounterVec
	visible     *prometheus.GaugeVec
	activations *prometheus.CounterVec
	fleet       *prometheus.GaugeVec
}

var _ session.Hook = (*Metrics)(nil)

// New registers the dashboard collectors plus the Go and process collectors
// on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fmm",
			Name:      "sessions_active",
			Help:      "Open dashboard sessions.",
		}),
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fmm",
			Name:      "sessions_opened_total",
			Help:      "Dashboard sessions opened.",
		}),
		filters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fmm",
			Name:      "filter_changes_total",
			Help:      "Status filter changes by filter.",
		}, []string{"filter"}),
		visible: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fmm",
			Name:      "filter_visible_machines",
			Help:      "Machines shown by the last application of each filter.",
		}, []string{"filter"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fmm",
			Name:      "row_activations_total",
			Help:      "List row activations by outcome.",
		}, []string{"outcome"}),
		fleet: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fmm",
			Name:      "fleet_machines",
			Help:      "Machines in the catalog by status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessions, m.opened, m.filters, m.visible, m.activations, m.fleet,
	)
	return m
}

// ObserveFleet records per-status catalog totals.
func (m *Metrics) ObserveFleet(reg *machines.Registry) {
	for status, n := range reg.Counts() {
		m.fleet.WithLabelValues(string(status)).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionOpened(string) {
	m.sessions.Inc()
	m.opened.Inc()
}

func (m *Metrics) SessionClosed(string) { m.sessions.Dec() }

func (m *Metrics) FilterApplied(_ string, filter machines.Status, visible int) {
	label := filterLabel(filter)
	m.filters.WithLabelValues(label).Inc()
	m.visible.WithLabelValues(label).Set(float64(visible))
}

func (m *Metrics) RowActivated(_ string, _ string, focused bool) {
	outcome := "focused"
	if !focused {
		outcome = "stale"
	}
	m.activations.WithLabelValues(outcome).Inc()
}

func filterLabel(f machines.Status) string {
	if f == machines.AnyStatus {
		return "all"
	}
	return string(f)
}
