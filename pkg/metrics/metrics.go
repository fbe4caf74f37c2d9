// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	FindAddressTotal      *prometheus.CounterVec
	FindAddressResultSize prometheus.Histogram

	FanoutLatency      *prometheus.HistogramVec
	ShardFailuresTotal *prometheus.CounterVec
	ShardTimeoutsTotal *prometheus.CounterVec

	AggregationDuplicatesTotal prometheus.Counter

	RadixTreeMemoryBytes  *prometheus.GaugeVec
	ForwardIndexSizeBytes *prometheus.GaugeVec
	ShardRecordCount      *prometheus.GaugeVec

	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		FindAddressTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "find_address_requests_total",
				Help: "Total findAddress requests by outcome (ok, partial, all_shards_failed).",
			},
			[]string{"outcome"},
		),
		FindAddressResultSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "find_address_result_count",
				Help:    "Number of ranked results returned per findAddress request.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		FanoutLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shard_fanout_latency_seconds",
				Help:    "Latency of a single shard's RPC call during fan-out.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"shard_id"},
		),
		ShardFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shard_failures_total",
				Help: "Total fan-out failures by shard.",
			},
			[]string{"shard_id"},
		),
		ShardTimeoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shard_timeouts_total",
				Help: "Total fan-out timeouts by shard.",
			},
			[]string{"shard_id"},
		),
		AggregationDuplicatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aggregation_duplicates_total",
				Help: "Total duplicate records collapsed during result aggregation.",
			},
		),
		RadixTreeMemoryBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "radix_tree_memory_bytes",
				Help: "Estimated radix trie memory usage per shard.",
			},
			[]string{"shard_id"},
		),
		ForwardIndexSizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forward_index_size_bytes",
				Help: "Estimated forward store memory usage per shard.",
			},
			[]string{"shard_id"},
		),
		ShardRecordCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shard_record_count",
				Help: "Number of address records loaded per shard.",
			},
			[]string{"shard_id"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state per shard (0=closed, 1=open, 2=half-open).",
			},
			[]string{"shard_id"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.FindAddressTotal,
		m.FindAddressResultSize,
		m.FanoutLatency,
		m.ShardFailuresTotal,
		m.ShardTimeoutsTotal,
		m.AggregationDuplicatesTotal,
		m.RadixTreeMemoryBytes,
		m.ForwardIndexSizeBytes,
		m.ShardRecordCount,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
