// Package metrics provides Prometheus metrics for the lisensi server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics counts payment lifecycle events. All methods are nil-safe so
// callers can run without metrics wired (tests, one-off commands).
type PaymentMetrics struct {
	created       prometheus.Counter
	paid          prometheus.Counter
	expired       prometheus.Counter
	cancelled     prometheus.Counter
	gatewayErrors *prometheus.CounterVec
}

// NewPaymentMetrics creates and registers payment metrics on the given
// registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lisensi_payments_created_total",
			Help: "Number of payment quotes created.",
		}),
		paid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lisensi_payments_paid_total",
			Help: "Number of payments confirmed paid.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lisensi_payments_expired_total",
			Help: "Number of payments that expired before being paid.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lisensi_payments_cancelled_total",
			Help: "Number of payments cancelled.",
		}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lisensi_gateway_errors_total",
			Help: "Number of payment provider call failures.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.created, m.paid, m.expired, m.cancelled, m.gatewayErrors)
	return m
}

// Created increments the created-quotes counter.
func (m *PaymentMetrics) Created() {
	if m != nil {
		m.created.Inc()
	}
}

// Paid increments the paid counter.
func (m *PaymentMetrics) Paid() {
	if m != nil {
		m.paid.Inc()
	}
}

// Expired increments the expired counter.
func (m *PaymentMetrics) Expired() {
	if m != nil {
		m.expired.Inc()
	}
}

// ExpiredN adds n to the expired counter.
func (m *PaymentMetrics) ExpiredN(n int64) {
	if m != nil && n > 0 {
		m.expired.Add(float64(n))
	}
}

// Cancelled increments the cancelled counter.
func (m *PaymentMetrics) Cancelled() {
	if m != nil {
		m.cancelled.Inc()
	}
}

// GatewayError increments the provider failure counter for the given
// operation.
func (m *PaymentMetrics) GatewayError(op string) {
	if m != nil {
		m.gatewayErrors.WithLabelValues(op).Inc()
	}
}
