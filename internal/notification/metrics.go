package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "opsboard",
	Subsystem: "notifications",
	Name:      "dispatched_total",
	Help:      "Notifications handled by the dispatcher, by result.",
}, []string{"result"})

func recordDispatch(result string) {
	dispatchedTotal.WithLabelValues(result).Inc()
}
