package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/frahmantamala/opsboard/internal"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "opsboard",
	Subsystem: "tasks",
	Name:      "transitions_total",
	Help:      "Task transition attempts broken down by command and outcome code.",
}, []string{"command", "outcome"})

func recordTransition(cmd Command, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if appErr, ok := internal.IsAppError(err); ok {
			outcome = string(appErr.Code)
		}
	}
	transitionsTotal.With(prometheus.Labels{
		"command": string(cmd),
		"outcome": outcome,
	}).Inc()
}
