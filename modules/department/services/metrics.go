package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	departmentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Subsystem: "department",
		Name:      "writes_total",
		Help:      "Total number of department write operations broken down by op and result.",
	}, []string{"op", "result"})

	departmentCascadeSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "identity",
		Subsystem: "department",
		Name:      "cascade_size",
		Help:      "Number of descendant departments rewritten or removed by a single move or delete.",
		Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"op"})

	departmentWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Subsystem: "department",
		Name:      "write_conflicts_total",
		Help:      "Total number of department write conflicts broken down by kind.",
	}, []string{"kind"})

	departmentQuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Subsystem: "department",
		Name:      "quota_rejections_total",
		Help:      "Total number of department writes rejected by a tenant quota.",
	}, []string{"kind"})
)

func recordWrite(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsValidation(err):
		result = "validation"
	case IsNotFound(err):
		result = "not_found"
	case IsConflict(err):
		result = "conflict"
	case IsInternal(err):
		result = "internal"
	default:
		result = "error"
	}
	departmentWrites.WithLabelValues(op, result).Inc()
}

func recordCascade(op string, size int) {
	departmentCascadeSize.WithLabelValues(op).Observe(float64(size))
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	departmentWriteConflicts.WithLabelValues(kind).Inc()
}

func recordQuotaRejection(kind string) {
	departmentQuotaRejections.WithLabelValues(kind).Inc()
}
