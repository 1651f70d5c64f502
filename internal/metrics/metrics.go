// Package metrics exports scheduler and teardown counters to Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/l1jgo/scenecore/internal/scene"
	"github.com/l1jgo/scenecore/internal/sequence"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter adapts sequence.Metrics and scene.Metrics to Prometheus collectors.
type Exporter struct {
	stepsFired      prom.Counter
	stepPanics      prom.Counter
	activeSequences prom.Gauge
	teardowns       *prom.CounterVec
	hookFailures    *prom.CounterVec
}

var (
	_ sequence.Metrics = (*Exporter)(nil)
	_ scene.Metrics    = (*Exporter)(nil)
)

// New creates and registers the collectors. A nil reg uses the default
// registerer; an empty namespace uses "scenecore".
func New(namespace string, reg prom.Registerer) (*Exporter, error) {
	if namespace == "" {
		namespace = "scenecore"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	e := &Exporter{
		stepsFired: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_steps_fired_total",
			Help:      "Func steps run by the scheduler.",
		}),
		stepPanics: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_step_panics_total",
			Help:      "Func steps that panicked and killed their sequence.",
		}),
		activeSequences: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "sequences_active",
			Help:      "Sequences in the active set after the last tick.",
		}),
		teardowns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "teardowns_total",
			Help:      "Completed entity teardowns.",
		}, []string{"forced"}),
		hookFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "teardown_hook_failures_total",
			Help:      "Teardown hooks that returned an error or panicked.",
		}, []string{"step"}),
	}
	for _, c := range []prom.Collector{e.stepsFired, e.stepPanics, e.activeSequences, e.teardowns, e.hookFailures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return e, nil
}

func (e *Exporter) StepFired()             { e.stepsFired.Inc() }
func (e *Exporter) StepPanicked()          { e.stepPanics.Inc() }
func (e *Exporter) ActiveSequences(n int)  { e.activeSequences.Set(float64(n)) }
func (e *Exporter) HookFailed(step string) { e.hookFailures.WithLabelValues(step).Inc() }

func (e *Exporter) TeardownCompleted(forced bool) {
	label := "false"
	if forced {
		label = "true"
	}
	e.teardowns.WithLabelValues(label).Inc()
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(g prom.Gatherer) http.Handler {
	if g == nil {
		g = prom.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
