package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Tracking metrics
	TrackedSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focuslog_tracked_seconds_total",
			Help: "Whole seconds credited to focused applications",
		},
	)

	Transitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focuslog_transitions_total",
			Help: "Focus changes between window titles",
		},
	)

	TrackingActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focuslog_tracking_active",
			Help: "1 while tracking, 0 while paused",
		},
	)

	ApplicationsToday = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focuslog_applications_today",
			Help: "Distinct window titles recorded for the current day at the last flush",
		},
	)

	// Persistence metrics
	FlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuslog_flushes_total",
			Help: "Usage document saves by result",
		},
		[]string{"result"},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "focuslog_flush_duration_seconds",
			Help:    "Time spent writing the usage document",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Probe metrics
	ProbeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focuslog_probe_errors_total",
			Help: "Failed or timed out focused-window lookups",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		TrackedSeconds,
		Transitions,
		TrackingActive,
		ApplicationsToday,
		FlushesTotal,
		FlushDuration,
		ProbeErrors,
	)
}
