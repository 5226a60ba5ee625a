package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FailuresTotal tracks failures that reached the handler chain
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashguard_failures_total",
			Help: "Total number of failures handled",
		},
		[]string{"kind", "severity", "status"},
	)

	// HandlerOutcomes tracks what each handler returned
	HandlerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashguard_handler_outcomes_total",
			Help: "Total number of handler invocations by outcome",
		},
		[]string{"handler", "outcome"},
	)

	// HandlingDuration tracks how long a failure spends in the handler chain
	HandlingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crashguard_handling_duration_seconds",
			Help:    "Time spent running the handler chain in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"origin"},
	)

	// ReportsStored tracks failure report writes per backend
	ReportsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashguard_reports_stored_total",
			Help: "Total number of failure reports written",
		},
		[]string{"backend", "result"},
	)

	// RequestsTotal tracks HTTP requests served
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashguard_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "code"},
	)

	// DBConnectionPoolUsage tracks the percentage of open database connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crashguard_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the pool size",
		},
	)
)
