// Package metrics provides Prometheus metrics for the collection valuation service.
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
			Name: "swu_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swu_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Aggregation Run Metrics
	AggregateRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swu_aggregate_runs_total",
			Help: "Total number of aggregate price runs",
		},
		[]string{"kind", "result"}, // result: "success" or "failed"
	)

	AggregateEntitiesSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swu_aggregate_entities_selected_total",
			Help: "Entities picked by the staleness selector",
		},
		[]string{"kind"},
	)

	AggregateRowsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swu_aggregate_rows_upserted_total",
			Help: "Aggregate price rows written",
		},
		[]string{"kind"},
	)

	AggregateRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swu_aggregate_run_duration_seconds",
			Help:    "Time taken by one selector, aggregate and upsert run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	AggregateMalformedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swu_aggregate_malformed_keys_total",
			Help: "Sub-metric values skipped because they could not be parsed",
		},
	)

	// On-demand recompute outcomes
	OnDemandRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swu_ondemand_requests_total",
			Help: "On-demand entity price reads by outcome",
		},
		[]string{"kind", "outcome"}, // "recomputed", "debounced", "throttled"
	)
)
