package metrics

import (
	"personal-vault/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionTransitionsTotal,
		invalidTransitionsTotal,
		subscriptionsTotal,
		ledgerWritesTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_subscription_transitions_total",
			Help: "Applied subscription status transitions.",
		},
		[]string{"from", "to"},
	)

	invalidTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_invalid_transitions_total",
			Help: "Transitions outside the allowed table, acknowledged without mutation.",
		},
		[]string{"from", "to"},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"},
	)

	ledgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_ledger_writes_total",
			Help: "Invoice and transaction rows written, by kind and resulting status.",
		},
		[]string{"kind", "status"},
	)
)

func IncTransition(from, to model.SubscriptionStatus) {
	subscriptionTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func IncInvalidTransition(from, to model.SubscriptionStatus) {
	invalidTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	for _, status := range model.AllSubscriptionStatuses {
		if count, ok := counts[status]; ok {
			subscriptionsTotal.WithLabelValues(string(status)).Set(float64(count))
		}
	}
}

func IncLedgerWrite(kind, status string) {
	ledgerWritesTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
