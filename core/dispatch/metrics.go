package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	schedulesComputed *prometheus.CounterVec
	computeDuration   prometheus.Histogram
	dutyRetries       prometheus.Counter
	dutyFallbacks     prometheus.Counter
	scheduleWarnings  prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	computed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedules_computed_total",
			Help: "Number of schedule computations by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_compute_seconds",
			Help:    "Time spent computing one route schedule",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duty_retries_total",
			Help: "Number of strict duty restarts caused by headway conflicts",
		},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duty_fallbacks_total",
			Help: "Number of duties planned in forced-fit mode",
		},
	)
	warns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_warnings_total",
			Help: "Number of warnings attached to computed schedules",
		},
	)
	return computed, dur, retries, fallbacks, warns
}

func init() {
	schedulesComputed, computeDuration, dutyRetries, dutyFallbacks, scheduleWarnings = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(schedulesComputed, computeDuration, dutyRetries, dutyFallbacks, scheduleWarnings)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	schedulesComputed, computeDuration, dutyRetries, dutyFallbacks, scheduleWarnings = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func outcomeLabel(p Plan) string {
	switch {
	case p.Stats.Duties == 0:
		return "empty"
	case len(p.Result.Warnings) > 0:
		return "warnings"
	default:
		return "ok"
	}
}
