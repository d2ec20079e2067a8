// Package metrics exposes Prometheus instrumentation for recipe runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run and step collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_runs_total",
				Help: "Recipe runs by mode and final status",
			},
			[]string{"mode", "status"},
		),
		StepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_steps_total",
				Help: "Executed steps by command and status",
			},
			[]string{"command", "status"},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_step_duration_seconds",
				Help:    "Step execution time in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"command"},
		),
	}
}

func (m *Metrics) ObserveRun(mode, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) ObserveStep(command, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(command, status).Inc()
	m.StepDuration.WithLabelValues(command).Observe(d.Seconds())
}
