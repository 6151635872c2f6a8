package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsIngestedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eligibility",
		Subsystem: "ingest",
		Name:      "rows_ingested_total",
		Help:      "Rows written to raw staging, by vendor.",
	}, []string{"vendor"})

	rowsSkippedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eligibility",
		Subsystem: "ingest",
		Name:      "rows_skipped_total",
		Help:      "Rows dropped as unmappable, by vendor.",
	}, []string{"vendor"})

	vendorFailuresMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eligibility",
		Subsystem: "ingest",
		Name:      "vendor_failures_total",
		Help:      "Vendor extracts aborted before completion, by vendor.",
	}, []string{"vendor"})

	runsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eligibility",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Completed pipeline runs, by final status.",
	}, []string{"status"})

	runDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eligibility",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of full pipeline runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
