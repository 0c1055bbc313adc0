// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger metrics
	CoinsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_coins_moved_total",
			Help: "Coins credited to or debited from user wallets",
		},
		[]string{"direction", "reason"}, // direction: credit|debit
	)

	CampaignViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_views_total",
			Help: "Campaign view attempts by outcome",
		},
		[]string{"outcome"},
	)

	WithdrawalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawal_requests_total",
			Help: "Withdrawal requests by lifecycle status",
		},
		[]string{"status"},
	)

	PaymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Gateway payment verifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Ledger events handed to the broker by outcome",
		},
		[]string{"event_type", "outcome"},
	)

	GatewayCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payment_gateway_circuit_state",
			Help: "Gateway circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SubscriptionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions flipped to inactive by the expiry sweep",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordCredit counts coins added to a wallet.
func RecordCredit(reason string, coins int64) {
	if coins > 0 {
		CoinsMoved.WithLabelValues("credit", reason).Add(float64(coins))
	}
}

// RecordDebit counts coins removed from a wallet.
func RecordDebit(reason string, coins int64) {
	if coins > 0 {
		CoinsMoved.WithLabelValues("debit", reason).Add(float64(coins))
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
