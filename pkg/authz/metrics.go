package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var groupingChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authz",
	Subsystem: "grouping",
	Name:      "changes_total",
	Help:      "Total number of casbin grouping policy changes broken down by operation and result.",
}, []string{"op", "result"})

func recordGroupingChange(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	groupingChanges.WithLabelValues(op, result).Inc()
}
