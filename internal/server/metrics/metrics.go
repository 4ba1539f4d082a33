// Package metrics exposes Prometheus counters for session lifecycle events
// on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	registry      *prometheus.Registry
	sessionEvents *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
	sweepRemoved  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Session lifecycle operations by event and outcome.",
		}, []string{"event", "outcome"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refresh_store_failures_total",
			Help: "Refresh store operations that failed, by operation.",
		}, []string{"op"}),
		sweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refresh_sweep_removed_total",
			Help: "Refresh records removed by the retention sweep.",
		}),
	}
	reg.MustRegister(
		m.sessionEvents,
		m.storeFailures,
		m.sweepRemoved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// The recorders are nil-safe so components can run without metrics.

func (m *Metrics) SessionEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) StoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) SweepRemoved(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepRemoved.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
