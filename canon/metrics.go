package canon

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Root outcomes recorded by Metrics.
const (
	OutcomeOK               = "ok"
	OutcomeMissingAttribute = "missing_attribute"
	OutcomeCycle            = "cycle"
	OutcomeError            = "error"
)

// Metrics counts canonicalization work. A nil *Metrics records nothing.
type Metrics struct {
	roots       *prometheus.CounterVec
	rewritten   prometheus.Counter
	diagnostics *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semgraph",
			Subsystem: "canon",
			Name:      "roots_total",
			Help:      "Roots canonicalized, by outcome.",
		}, []string{"outcome"}),
		rewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semgraph",
			Subsystem: "canon",
			Name:      "rewritten_nodes_total",
			Help:      "Anonymous nodes replaced by canonical IRIs.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semgraph",
			Subsystem: "canon",
			Name:      "diagnostics_total",
			Help:      "Non-fatal canonicalization diagnostics, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.roots, m.rewritten, m.diagnostics)
	}
	return m
}

func (m *Metrics) observeRoot(err error) {
	if m == nil {
		return
	}
	m.roots.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) observeResult(res *Result) {
	if m == nil || res == nil {
		return
	}
	m.rewritten.Add(float64(res.Rewritten))
	for _, d := range res.Diagnostics {
		m.diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMissingRootAttribute):
		return OutcomeMissingAttribute
	case errors.Is(err, ErrStructuralCycle):
		return OutcomeCycle
	default:
		return OutcomeError
	}
}
