package txlogger

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	legs     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "txlogger",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of gateway requests by method and terminal state",
			},
			[]string{"method", "state"},
		),
		legs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "txlogger",
				Subsystem: "gateway",
				Name:      "legs_total",
				Help:      "Total number of settled legs of committed requests",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.legs)
	}

	return m
}
