package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		webhookRejectedTotal,
		webhookApplyLatencyMs,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Webhook events by event name and outcome (applied/duplicate/stale/skipped/error).",
		},
		[]string{"event", "outcome"},
	)

	webhookRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_rejected_total",
			Help: "Webhook requests rejected before processing (signature/validation).",
		},
		[]string{"reason"},
	)

	webhookApplyLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_webhook_apply_latency_ms",
			Help:    "End-to-end webhook application latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncWebhookEvent(event, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(event), norm(outcome)).Inc()
}

func IncWebhookRejected(reason string) {
	webhookRejectedTotal.WithLabelValues(norm(reason)).Inc()
}

func ObserveWebhookApply(latencyMs int64) {
	webhookApplyLatencyMs.Observe(float64(latencyMs))
}
