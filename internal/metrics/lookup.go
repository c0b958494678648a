package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/v0xg/dictfocus/internal/sequencer"
)

// Lookup outcome label values
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeBusy   = "busy"
)

// LookupMetrics holds Prometheus metrics for lookup sequences.
type LookupMetrics struct {
	LookupsTotal   *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	StepFailures   *prometheus.CounterVec
}

// NewLookupMetrics creates and registers lookup metrics on the given registry.
func NewLookupMetrics(reg prometheus.Registerer) *LookupMetrics {
	m := &LookupMetrics{
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "total",
			Help:      "Total number of lookups, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "Duration of lookup sequences in seconds, including queue wait.",
			Buckets:   []float64{.5, 1, 1.5, 2, 5, 8, 10, 15, 30},
		}, []string{"mode"}),
		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "step_failures_total",
			Help:      "Total number of failed sequence steps, by step.",
		}, []string{"step"}),
	}

	reg.MustRegister(m.LookupsTotal, m.LookupDuration, m.StepFailures)
	return m
}

// Mode returns the mode label for text
func Mode(text string) string {
	if sequencer.IsSpecial(text) {
		return "special"
	}
	return "simple"
}

// Observe records one finished lookup. Busy rejections are counted but not timed.
func (m *LookupMetrics) Observe(text string, elapsed time.Duration, err error) {
	mode := Mode(text)

	if errors.Is(err, sequencer.ErrBusy) {
		m.LookupsTotal.WithLabelValues(mode, OutcomeBusy).Inc()
		return
	}

	m.LookupDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		m.LookupsTotal.WithLabelValues(mode, OutcomeOK).Inc()
		return
	}

	m.LookupsTotal.WithLabelValues(mode, OutcomeFailed).Inc()
	var aerr *sequencer.AutomationError
	if errors.As(err, &aerr) {
		m.StepFailures.WithLabelValues(string(aerr.Step)).Inc()
	}
}
