package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)
	HTTPRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	// Oracle
	PriceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_price_checks_total",
			Help: "Price quote verifications by result",
		},
		[]string{"result"},
	)

	// Subscriptions
	SubscriptionOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_operations_total",
			Help: "Subscription ledger operations by operation and result",
		},
		[]string{"op", "result"},
	)
	SubscriptionFeesCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_fees_collected_total",
			Help: "Fees moved into the fee account",
		},
	)
	Subscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions",
			Help: "Number of subscriptions per state",
		},
		[]string{"state"},
	)

	// Ledger
	LedgerBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_breaker_state",
			Help: "Circuit breaker state per ledger (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// Gumball
	GumballSalesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gumball_sales_total",
			Help: "Gumball purchase attempts by result",
		},
		[]string{"result"},
	)
)

// Result turns an error into a low-cardinality label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)
	prometheus.MustRegister(HTTPRateLimited)

	prometheus.MustRegister(PriceChecksTotal)

	prometheus.MustRegister(SubscriptionOperationsTotal)
	prometheus.MustRegister(SubscriptionFeesCollected)
	prometheus.MustRegister(Subscriptions)

	prometheus.MustRegister(LedgerBreakerState)
	prometheus.MustRegister(GumballSalesTotal)
}
