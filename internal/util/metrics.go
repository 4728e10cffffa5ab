package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bead_adjustments_total",
		Help: "Total number of ledger adjustments applied",
	}, []string{"type"})

	BatchesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bead_batches_applied_total",
		Help: "Total number of batch mutations applied",
	})

	BatchItemsApplied = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bead_batch_items",
		Help:    "Item count per applied batch",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	GroupEditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bead_group_edits_total",
		Help: "Total number of record group edits",
	})

	GroupDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bead_group_deletes_total",
		Help: "Total number of record group deletes",
	})

	ResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bead_resets_total",
		Help: "Total number of full inventory resets",
	})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bead_idempotent_replays_total",
		Help: "Total number of mutations answered from the idempotency cache",
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bead_validation_failures_total",
		Help: "Total number of rejected mutation requests",
	}, []string{"reason"})

	MutationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bead_mutation_latency_seconds",
		Help:    "Latency of ledger mutation transactions",
		Buckets: prometheus.DefBuckets,
	})

	GroupListLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bead_group_list_latency_seconds",
		Help:    "Latency of record group listing queries",
		Buckets: prometheus.DefBuckets,
	})

	ConsumeStatsCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bead_consume_stats_cache_total",
		Help: "Consume-stats cache lookups by outcome",
	}, []string{"outcome"})

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
