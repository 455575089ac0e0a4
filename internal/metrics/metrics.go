package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Ledger
	LedgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Committed ledger operations",
		},
		[]string{"type"}, // deposit|charge
	)
	LedgerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_failures_total",
			Help: "Ledger operations that did not commit",
		},
		[]string{"reason"},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	BillingChargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charges_total",
			Help: "Per-service results of billing passes",
		},
		[]string{"result"}, // charged|suspended|failed
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound notifications by result",
		},
		[]string{"result"}, // sent|failed|dropped
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics from the default registry.
var Handler = promhttp.Handler

// Init registers every collector once. Safe to call from tests and main.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			LedgerOperationsTotal,
			LedgerFailuresTotal,
			WebhookEventsTotal,
			BillingChargesTotal,
			NotificationsTotal,
			WorkerQueueDepth,
		)
	})
}
