package intake

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for submission outcomes and degraded steps.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
	verdicts    *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	duration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diagnostico",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Submissions by final outcome",
		}, []string{"outcome"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diagnostico",
			Subsystem: "intake",
			Name:      "verdicts_total",
			Help:      "Scored submissions by qualification result",
		}, []string{"qualifies"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diagnostico",
			Subsystem: "intake",
			Name:      "degraded_steps_total",
			Help:      "Non-fatal step failures",
		}, []string{"step"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "diagnostico",
			Subsystem: "intake",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from accepted request to response",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.verdicts, m.degraded, m.duration)
	return m
}

func (m *Metrics) observeOutcome(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// observeRateLimited counts a rejected request. It never ran the pipeline,
// so no duration is observed.
func (m *Metrics) observeRateLimited() {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcomeRateLimited).Inc()
}

func (m *Metrics) observeVerdict(qualifies bool) {
	if m == nil {
		return
	}
	label := "false"
	if qualifies {
		label = "true"
	}
	m.verdicts.WithLabelValues(label).Inc()
}

func (m *Metrics) observeDegraded(step string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(step).Inc()
}
