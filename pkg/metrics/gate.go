package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(gateDecisionsTotal)
}

var gateDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "decisions_total",
		Help:      "Access gate decisions by gate and result.",
	},
	[]string{"gate", "result"}, // gate: route, page, api; result: allowed, redirected, blocked, error
)

func IncGateDecision(gate, result string) {
	gateDecisionsTotal.WithLabelValues(gate, result).Inc()
}
