package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared across the service.
type Metrics struct {
	// Settlement flow
	SettlementsTotal *prometheus.CounterVec // labels: operation, outcome
	GatewayCalls     *prometheus.CounterVec // labels: method, result
	GatewayDuration  *prometheus.HistogramVec

	// Stats update job
	StatsRunDuration prometheus.Histogram
	StatsTermErrors  *prometheus.CounterVec // label: term
	StatsLastRunUnix prometheus.Gauge

	// HTTP surface
	HTTPRequests *prometheus.CounterVec // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers all instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SettlementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_operations_total",
			Help: "Settlement operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		GatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_gateway_calls_total",
			Help: "Calls to the remote ledger gateway by method and result.",
		}, []string{"method", "result"}),
		GatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_gateway_call_duration_seconds",
			Help:    "Latency of ledger gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		StatsRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stats_update_run_duration_seconds",
			Help:    "Wall-clock duration of one full stats recomputation tick.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		StatsTermErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stats_update_term_errors_total",
			Help: "Stats recomputation failures by term.",
		}, []string{"term"}),
		StatsLastRunUnix: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stats_update_last_run_timestamp_seconds",
			Help: "Unix time of the last completed stats recomputation tick.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status class.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
