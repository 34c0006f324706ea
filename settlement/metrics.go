package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "txlogger"

type metrics struct {
	invocations *prometheus.CounterVec
	duration    prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "settlement",
				Name:      "invocations_total",
				Help:      "Total number of ledger invocations by final VM state",
			},
			[]string{"state"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "settlement",
				Name:      "invocation_duration_seconds",
				Help:      "Ledger invocation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.invocations, m.duration)
	}

	return m
}
