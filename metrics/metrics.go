// Package metrics counts what the guards detect. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "purity"

type Metrics struct {
	MutationsDetected       prometheus.Counter
	NonDeterministicOutputs *prometheus.CounterVec
	SideEffectsIntercepted  *prometheus.CounterVec
	RestoreFailures         prometheus.Counter
}

// New registers the collectors on reg. Registering twice on the same registerer panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MutationsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_detected_total",
			Help:      "Calls that mutated one of their arguments.",
		}),
		NonDeterministicOutputs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nondeterministic_outputs_total",
			Help:      "Calls whose result differed from an earlier call with equal arguments.",
		}, []string{"mode"}),
		SideEffectsIntercepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effects_intercepted_total",
			Help:      "Side-effect attempts caught by a sandbox.",
		}, []string{"capability", "mode"}),
		RestoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_failures_total",
			Help:      "Patched targets that could not be put back.",
		}),
	}
}

func Mode(strict bool) string {
	if strict {
		return "strict"
	}
	return "permissive"
}

func (m *Metrics) MutationDetected() {
	if m == nil {
		return
	}
	m.MutationsDetected.Inc()
}

func (m *Metrics) NonDeterministicOutput(strict bool) {
	if m == nil {
		return
	}
	m.NonDeterministicOutputs.WithLabelValues(Mode(strict)).Inc()
}

func (m *Metrics) SideEffectIntercepted(capability string, strict bool) {
	if m == nil {
		return
	}
	m.SideEffectsIntercepted.WithLabelValues(capability, Mode(strict)).Inc()
}

func (m *Metrics) RestoreFailed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.RestoreFailures.Add(float64(n))
}
