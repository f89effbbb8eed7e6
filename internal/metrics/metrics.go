// Package metrics exposes Prometheus counters for runs, providers and downloads.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Run metrics
var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by trigger and final state.",
		},
		[]string{"trigger", "state"},
	)

	RunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "backdrops",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	RunInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "backdrops",
			Name:      "run_in_progress",
			Help:      "1 while a pipeline run holds the run lock.",
		},
	)

	RejectedTriggersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "rejected_triggers_total",
			Help:      "Triggers refused because a run was already active.",
		},
	)

	EntryOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "entry_outcomes_total",
			Help:      "Per-title acquisition outcomes.",
		},
		[]string{"media_type", "outcome"},
	)
)

// Provider metrics
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "provider_requests_total",
			Help:      "Requests sent to metadata and image providers.",
		},
		[]string{"provider", "status"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "fallbacks_total",
			Help:      "Acquisitions that fell back from the secondary to the primary provider.",
		},
		[]string{"media_type"},
	)
)

// Download metrics
var (
	BackdropDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "downloads_total",
			Help:      "Backdrop files by status (downloaded, reused, error, pruned).",
		},
		[]string{"status"},
	)

	DownloadedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backdrops",
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the backdrop tree.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunDurationSeconds,
		RunInProgress,
		RejectedTriggersTotal,
		EntryOutcomesTotal,
		ProviderRequestsTotal,
		FallbacksTotal,
		BackdropDownloadsTotal,
		DownloadedBytesTotal,
	)
}
