package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(reminderEmailsTotal)
}

var reminderEmailsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reminder",
		Name:      "das_emails_total",
		Help:      "DAS reminder emails by outcome (sent, skipped, failed).",
	},
	[]string{"outcome"},
)

func IncReminderEmail(outcome string) {
	reminderEmailsTotal.WithLabelValues(outcome).Inc()
}
