package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts review submissions by outcome (saved, degraded, rejected, invalid).
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviereview_submissions_total",
			Help: "Total number of review submissions by outcome",
		},
		[]string{"outcome"},
	)

	// DependencyCalls counts gateway calls per dependency and result.
	DependencyCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviereview_dependency_calls_total",
			Help: "Total number of calls to external dependencies",
		},
		[]string{"dependency", "operation", "result"},
	)

	DependencyLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviereview_dependency_latency_seconds",
			Help:    "Latency of calls to external dependencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dependency", "operation"},
	)

	AdminToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviereview_admin_toggles_total",
			Help: "Total number of admin flag toggles",
		},
		[]string{"flag"},
	)

	// FlagState mirrors each runtime flag as 0/1.
	FlagState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moviereview_runtime_flag",
			Help: "Current value of runtime failure-simulation flags",
		},
		[]string{"flag"},
	)

	OverloadWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moviereview_overload_workers",
			Help: "Number of running overload simulation workers",
		},
	)

	OverloadRetainedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moviereview_overload_retained_bytes",
			Help: "Bytes currently retained by the overload memory worker",
		},
	)
)

func BoolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
