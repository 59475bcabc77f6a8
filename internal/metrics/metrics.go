package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts repair step activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	builds   *prometheus.CounterVec
	sweeps   *prometheus.CounterVec
	patches  prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repairer_outcomes_total",
		Help: "Total supervised repair invocations by terminal state.",
	}, []string{"state"})
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repairer_build_steps_total",
		Help: "Total build tool invocations by step and result.",
	}, []string{"step", "result"})
	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repairer_sweeps_total",
		Help: "Total orphan process sweeps by result.",
	}, []string{"result"})
	patches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "repairer_patches_total",
		Help: "Total patches produced by the repair engine.",
	})

	return &Metrics{
		outcomes: register(registerer, outcomes),
		builds:   register(registerer, builds),
		sweeps:   register(registerer, sweeps),
		patches:  register(registerer, patches),
	}
}

func (m *Metrics) IncOutcome(state string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(state).Inc()
}

func (m *Metrics) IncBuild(step, result string) {
	if m == nil || m.builds == nil {
		return
	}
	m.builds.WithLabelValues(step, result).Inc()
}

func (m *Metrics) IncSweep(result string) {
	if m == nil || m.sweeps == nil {
		return
	}
	m.sweeps.WithLabelValues(result).Inc()
}

func (m *Metrics) AddPatches(n int) {
	if m == nil || m.patches == nil || n <= 0 {
		return
	}
	m.patches.Add(float64(n))
}

// WriteTextfile stores all metrics gathered by g in the node exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
