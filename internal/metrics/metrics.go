// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	WebhookRequests  *prometheus.CounterVec
	Settlements      *prometheus.CounterVec
	RechargeAttempts *prometheus.CounterVec
	RateLimitHits    *prometheus.CounterVec
}

// Default is the global metrics instance registered on the default
// Prometheus registry.
var Default = New()

func New() *Metrics {
	return &Metrics{
		WebhookRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_webhook_requests_total",
			Help: "Inbound webhook requests by source platform.",
		}, []string{"platform"}),
		Settlements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_settlements_total",
			Help: "Lead settlement attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		RechargeAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_recharge_attempts_total",
			Help: "Balance recharge attempts by kind and result.",
		}, []string{"kind", "result"}),
		RateLimitHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_rate_limit_hits_total",
			Help: "Requests rejected by the webhook rate limiter.",
		}, []string{"path"}),
	}
}
