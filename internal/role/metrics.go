package role

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "opsboard",
	Subsystem: "authz",
	Name:      "decisions_total",
	Help:      "Permission checks broken down by permission and result.",
}, []string{"permission", "result"})

func recordDecision(permission string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	authzDecisions.With(prometheus.Labels{
		"permission": permission,
		"result":     result,
	}).Inc()
}
