package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upsert pipeline metrics
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runsheet_ingest_rows_total",
			Help: "Total rows processed, by domain and outcome",
		},
		[]string{"domain", "outcome"},
	)

	RowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runsheet_ingest_row_errors_total",
			Help: "Total rows rejected or failed, by domain",
		},
		[]string{"domain"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runsheet_ingest_batch_duration_seconds",
			Help:    "End-to-end duration of batch uploads in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store metrics
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runsheet_store_retries_total",
			Help: "Store retry attempts, by reason (conflict or unavailable)",
		},
		[]string{"reason"},
	)

	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runsheet_store_errors_total",
			Help: "Store operations that failed after exhausting retries",
		},
	)

	// Reset metrics
	ResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runsheet_resets_total",
			Help: "Total baseline resets applied",
		},
	)

	UploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runsheet_uploads_rejected_total",
			Help: "Uploads rejected before processing, by reason",
		},
		[]string{"reason"},
	)
)
