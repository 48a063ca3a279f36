package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.Created()
	m.Created()
	m.Paid()
	m.Expired()
	m.ExpiredN(3)
	m.Cancelled()

	if got := testutil.ToFloat64(m.created); got != 2 {
		t.Errorf("created: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.paid); got != 1 {
		t.Errorf("paid: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.expired); got != 4 {
		t.Errorf("expired: expected 4, got %v", got)
	}
	if got := testutil.ToFloat64(m.cancelled); got != 1 {
		t.Errorf("cancelled: expected 1, got %v", got)
	}
}

func TestGatewayErrorLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.GatewayError("create")
	m.GatewayError("create")
	m.GatewayError("check_status")

	if got := testutil.ToFloat64(m.gatewayErrors.WithLabelValues("create")); got != 2 {
		t.Errorf("create errors: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.gatewayErrors.WithLabelValues("check_status")); got != 1 {
		t.Errorf("check_status errors: expected 1, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PaymentMetrics

	m.Created()
	m.Paid()
	m.Expired()
	m.ExpiredN(10)
	m.Cancelled()
	m.GatewayError("create")
}
