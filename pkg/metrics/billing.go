package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhookEventsTotal, checkoutSessionsTotal, portalSessionsTotal)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Billing webhook deliveries by normalized event type and outcome.",
		},
		[]string{"event_type", "outcome"}, // outcome: applied, skipped, rejected, failed
	)

	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions requested, by outcome.",
		},
		[]string{"outcome"},
	)

	portalSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "portal_sessions_total",
			Help:      "Billing portal sessions requested, by outcome.",
		},
		[]string{"outcome"},
	)
)

func IncWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func IncCheckoutSession(outcome string) {
	checkoutSessionsTotal.WithLabelValues(outcome).Inc()
}

func IncPortalSession(outcome string) {
	portalSessionsTotal.WithLabelValues(outcome).Inc()
}
