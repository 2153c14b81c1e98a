// Package metrics exports council turn outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gregoriusjimmy/llm-council/internal/council"
)

// Recorder implements council.Recorder with Prometheus collectors.
type Recorder struct {
	advisorCalls    *prometheus.CounterVec
	advisorDuration *prometheus.HistogramVec
	critiques       *prometheus.CounterVec
	critiqueSeconds prometheus.Histogram
	syntheses       *prometheus.CounterVec
}

var _ council.Recorder = (*Recorder)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		advisorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_council_advisor_calls_total",
				Help: "Total number of advisor calls by outcome",
			},
			[]string{"status"},
		),
		advisorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_council_advisor_duration_seconds",
				Help:    "Advisor call duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 180, 300},
			},
			[]string{"status"},
		),
		critiques: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_council_critique_total",
				Help: "Total number of chairman critiques by outcome",
			},
			[]string{"outcome"},
		),
		critiqueSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "llm_council_critique_duration_seconds",
				Help:    "Chairman critique duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300},
			},
		),
		syntheses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_council_synthesis_total",
				Help: "Total number of synthesis stream starts by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(r.advisorCalls, r.advisorDuration, r.critiques, r.critiqueSeconds, r.syntheses)
	return r
}

// ObserveAdvisor counts one advisor result.
func (r *Recorder) ObserveAdvisor(result council.AdvisorResult) {
	status := string(result.Status)
	r.advisorCalls.WithLabelValues(status).Inc()
	r.advisorDuration.WithLabelValues(status).Observe(result.Duration.Seconds())
}

// ObserveCritique counts one critique.
func (r *Recorder) ObserveCritique(ok bool, duration time.Duration) {
	r.critiques.WithLabelValues(outcome(ok)).Inc()
	r.critiqueSeconds.Observe(duration.Seconds())
}

// ObserveSynthesis counts one attempt to open the final stream.
func (r *Recorder) ObserveSynthesis(started bool) {
	r.syntheses.WithLabelValues(outcome(started)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
