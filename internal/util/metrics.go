package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdjustmentsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_applied_total",
		Help: "Total number of stock adjustments committed, by kind",
	}, []string{"kind"})

	AdjustmentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_rejected_total",
		Help: "Total number of stock adjustments rejected by validation",
	}, []string{"kind", "reason"})

	AdjustmentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_adjustment_latency_seconds",
		Help:    "Latency of stock adjustment operations end to end",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	BatchesConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_batches_consumed_total",
		Help: "Total number of batches fully drained by consumption",
	})

	LowStockEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_low_stock_events_total",
		Help: "Total number of low-stock transitions detected",
	})

	ExpiringBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_expiring_batches_total",
		Help: "Total number of batches flagged by the expiry sweep",
	}, []string{"status"})

	ExpirySweepLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_expiry_sweep_latency_seconds",
		Help:    "Latency of a full expiry sweep over all products",
		Buckets: prometheus.DefBuckets,
	})

	InvariantViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_invariant_violations_total",
		Help: "Total number of quantity/batch-sum mismatches observed on verification",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
