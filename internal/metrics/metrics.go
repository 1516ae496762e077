package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	BuzzAttempts      *prometheus.CounterVec
	RoundsCompleted   *prometheus.CounterVec
	DeadlineExpiries  prometheus.Counter
	ValidationSeconds prometheus.Histogram
	AIFallbacks       prometheus.Counter
}

// New registers the collectors with reg and returns them. Pass a fresh
// registry in tests to avoid duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BuzzAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainring",
			Name:      "buzz_attempts_total",
			Help:      "Buzz attempts by outcome.",
		}, []string{"outcome"}),
		RoundsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brainring",
			Name:      "rounds_completed_total",
			Help:      "Rounds completed by result.",
		}, []string{"result"}),
		DeadlineExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainring",
			Name:      "answer_deadline_expiries_total",
			Help:      "Answer windows that expired without a submission.",
		}),
		ValidationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brainring",
			Name:      "answer_validation_seconds",
			Help:      "Latency of the answer validation pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		AIFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brainring",
			Name:      "ai_validation_fallbacks_total",
			Help:      "AI equivalence checks that timed out or failed and fell back.",
		}),
	}
	reg.MustRegister(m.BuzzAttempts, m.RoundsCompleted, m.DeadlineExpiries, m.ValidationSeconds, m.AIFallbacks)
	return m
}

// NewNop returns collectors registered nowhere, for tests and optional wiring.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
