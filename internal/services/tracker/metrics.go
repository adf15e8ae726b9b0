package tracker

import (
	"github.com/prometheus/client_golang/prometheus"

	msg "github.com/LeonardoBeccarini/pivot_orders/internal/model/messages"
)

// Metrics are the tracker's prometheus collectors.
type Metrics struct {
	Evaluations   *prometheus.CounterVec
	Efficiency    *prometheus.GaugeVec
	TrackedOrders prometheus.Gauge
	Snapshots     *prometheus.CounterVec
	PollErrors    prometheus.Counter
	PublishErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "tracker",
			Name:      "evaluations_total",
			Help:      "Efficiency evaluations by order status.",
		}, []string{"status"}),
		Efficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pivot",
			Subsystem: "tracker",
			Name:      "order_efficiency_pct",
			Help:      "Last efficiency percentage per order.",
		}, []string{"pivot_id", "order_id"}),
		TrackedOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pivot",
			Subsystem: "tracker",
			Name:      "tracked_orders",
			Help:      "Orders currently held in the snapshot cache.",
		}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "tracker",
			Name:      "snapshots_total",
			Help:      "Order snapshots received, by outcome.",
		}, []string{"outcome"}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "tracker",
			Name:      "backend_poll_errors_total",
			Help:      "Failed polls of the order backend.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pivot",
			Subsystem: "tracker",
			Name:      "publish_errors_total",
			Help:      "Efficiency reports that could not be published.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Evaluations, m.Efficiency, m.TrackedOrders, m.Snapshots, m.PollErrors, m.PublishErrors)
	}
	return m
}

func (m *Metrics) observe(r msg.EfficiencyReportEvent) {
	m.Evaluations.WithLabelValues(r.Status).Inc()
	m.Efficiency.WithLabelValues(r.PivotID, r.OrderID).Set(r.EfficiencyPct)
}

func (m *Metrics) forget(pivotID, orderID string) {
	m.Efficiency.DeleteLabelValues(pivotID, orderID)
}
