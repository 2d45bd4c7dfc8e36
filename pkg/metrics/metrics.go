package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Ledger metrics
	TransactionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_transactions_recorded_total",
			Help: "Ledger transactions created or deleted",
		},
		[]string{"type", "operation"},
	)

	// Snapshot engine metrics
	SnapshotsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_snapshots_written_total",
			Help: "Daily performance snapshots persisted",
		},
	)

	BackfillDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_backfill_duration_seconds",
			Help:    "Wall time of full snapshot backfills",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	BackfillDays = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_backfill_days",
			Help:    "Calendar days covered per backfill run",
			Buckets: []float64{1, 7, 30, 90, 365, 1825},
		},
	)

	BackfillFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_backfill_failures_total",
			Help: "Backfill runs that rolled back",
		},
	)

	RecalculationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_recalculation_queue_depth",
			Help: "Portfolios with a pending recalculation",
		},
	)
)
