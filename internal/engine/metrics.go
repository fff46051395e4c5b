package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors an Enumerator reports to.
// A nil *Metrics records nothing.
type Metrics struct {
	Replays   prometheus.Counter
	Escapes   prometheus.Counter
	Paths     prometheus.Counter
	Errors    *prometheus.CounterVec // by code
	Worklist  prometheus.Gauge
	Branching prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Replays: f.NewCounter(prometheus.CounterOpts{
			Name: "discrete_replays_total",
			Help: "Model executions performed by enumeration",
		}),
		Escapes: f.NewCounter(prometheus.CounterOpts{
			Name: "discrete_escapes_total",
			Help: "Executions interrupted at an unresolved choice point",
		}),
		Paths: f.NewCounter(prometheus.CounterOpts{
			Name: "discrete_paths_total",
			Help: "Completed paths emitted",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "discrete_enumeration_errors_total",
			Help: "Enumerations that ended in an error, by code",
		}, []string{"code"}),
		Worklist: f.NewGauge(prometheus.GaugeOpts{
			Name: "discrete_worklist_depth",
			Help: "Prefixes waiting on the worklist after the last replay",
		}),
		Branching: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "discrete_branching_factor",
			Help:    "Prefixes pushed per escape",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		}),
	}
}

func (m *Metrics) replay(depth int) {
	if m == nil {
		return
	}
	m.Replays.Inc()
	m.Worklist.Set(float64(depth))
}

func (m *Metrics) escape(branches int) {
	if m == nil {
		return
	}
	m.Escapes.Inc()
	m.Branching.Observe(float64(branches))
}

func (m *Metrics) path() {
	if m == nil {
		return
	}
	m.Paths.Inc()
}

func (m *Metrics) failure(err error) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(ErrorCode(err)).Inc()
}
