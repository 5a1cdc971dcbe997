package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application workflow.
type Metrics struct {
	// Submissions by outcome (ok or the failure kind)
	Submissions *prometheus.CounterVec

	// Transitions by action and outcome
	Transitions *prometheus.CounterVec

	// Timelines that failed reconciliation
	IntegrityFailures prometheus.Counter

	TransitionLatency *prometheus.HistogramVec
}

// New registers the workflow metrics on reg. A nil *Metrics is valid and
// records nothing.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_submissions_total",
			Help: "Application submissions by outcome",
		}, []string{"outcome"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licensing_transitions_total",
			Help: "Requested status transitions by action and outcome",
		}, []string{"action", "outcome"}),

		IntegrityFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "licensing_integrity_failures_total",
			Help: "Timelines whose event chain did not reconcile with the application status",
		}),

		TransitionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licensing_transition_duration_seconds",
			Help:    "Duration of the transition read-check-write including commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTransition(action, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Metrics) IncrementIntegrityFailure() {
	if m != nil {
		m.IntegrityFailures.Inc()
	}
}

func (m *Metrics) ObserveTransitionLatency(action string, d time.Duration) {
	if m != nil {
		m.TransitionLatency.WithLabelValues(action).Observe(d.Seconds())
	}
}
