package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ordercore"

// DomainMetrics counts order and payment outcomes.
type DomainMetrics struct {
	ordersCreated   prometheus.Counter
	stockRejections prometheus.Counter
	statusChanges   *prometheus.CounterVec
	payments        *prometheus.CounterVec
	callbacks       *prometheus.CounterVec
}

// NewDomainMetrics registers the order and payment metrics on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed.",
		}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Order writes rolled back for insufficient stock.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Applied order status transitions by target status.",
		}, []string{"to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Successful payments by method.",
		}, []string{"method"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Gateway callbacks by reconciliation outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.ordersCreated, m.stockRejections, m.statusChanges, m.payments, m.callbacks)
	return m
}

func (m *DomainMetrics) OrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *DomainMetrics) StockRejected() {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *DomainMetrics) StatusChanged(to string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) PaymentRecorded(method string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(method)).Inc()
}

func (m *DomainMetrics) CallbackHandled(outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
