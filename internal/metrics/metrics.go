// Package metrics provides Prometheus metrics for the card catalog service.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Cache Metrics
	CacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_reads_total",
			Help: "EnsureFresh calls by partition and outcome",
		},
		[]string{"partition", "result"}, // result: "hit", "shared", "fetch"
	)

	CacheFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_fetches_total",
			Help: "Store fetches issued by the fetch coordinator",
		},
		[]string{"partition", "result"}, // result: "success", "fallback"
	)

	CacheFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_cache_fetch_duration_seconds",
			Help:    "Time taken to fetch a partition from the store",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"partition"},
	)

	CachePartitionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_cache_partition_cards",
			Help: "Number of cards held by each cached partition",
		},
		[]string{"partition"},
	)

	CatalogVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_version",
			Help: "Current global catalog version",
		},
	)

	InvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_invalidations_total",
			Help: "Total number of catalog invalidations broadcast",
		},
	)

	// Ban-list Metrics
	BanListBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_banlist_batches_total",
			Help: "Total number of ban-list batches applied",
		},
	)

	BanListUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_banlist_updates_total",
			Help: "Ban-list update items by format and result",
		},
		[]string{"format", "result"}, // result: "success", "invalid", "failed"
	)

	BanListBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_banlist_batch_duration_seconds",
			Help:    "Time taken to apply a ban-list batch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Consumer Metrics
	ConsumerRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_consumer_refreshes_total",
			Help: "Consumer refreshes by trigger",
		},
		[]string{"trigger"}, // "start", "signal", "poll"
	)

	// Deck Metrics
	DeckValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_deck_validations_total",
			Help: "Deck validations by format and result",
		},
		[]string{"format", "result"}, // result: "legal", "illegal"
	)

	// Admin Metrics
	AdminRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_admin_rate_limited_total",
			Help: "Admin requests rejected by the rate limiter",
		},
	)
)
