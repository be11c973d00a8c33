package supervisor

import "github.com/prometheus/client_golang/prometheus"

var (
	startsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "supervisor",
			Name:      "starts_total",
			Help:      "Startup attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	healthProbeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "supervisor",
			Name:      "health_probe_failures_total",
			Help:      "Failed steady-state health probes",
		},
	)

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "supervisor",
			Name:      "completions_total",
			Help:      "Completion requests by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(startsTotal, healthProbeFailures, completionsTotal)
}
