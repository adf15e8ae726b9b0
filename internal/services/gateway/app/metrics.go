package app

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Requests         *prometheus.CounterVec
	UpstreamFailures *prometheus.CounterVec
	ServedStale      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Dashboard requests by route.",
		}, []string{"route"}),
		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "gateway",
			Name:      "upstream_failures_total",
			Help:      "Failed upstream calls, breaker rejections included.",
		}, []string{"upstream"}),
		ServedStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "gateway",
			Name:      "served_stale_total",
			Help:      "Responses built from the last good upstream payload.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.UpstreamFailures, m.ServedStale)
	}
	return m
}
