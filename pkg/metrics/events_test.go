package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, label string) float64 {
	t.Helper()
	m, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetCounter().GetValue()
}

func TestEventMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)

	m.IncPublished("order_events")
	m.IncPublished("order_events")
	m.IncPublishFailed("payment_events")
	m.IncNotified("websocket")

	if got := counterValue(t, m.published, "order_events"); got != 2 {
		t.Fatalf("expected 2 published, got %v", got)
	}
	if got := counterValue(t, m.failed, "payment_events"); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := counterValue(t, m.notified, "websocket"); got != 1 {
		t.Fatalf("expected 1 notified, got %v", got)
	}
}

func TestEventMetricsNilSafe(t *testing.T) {
	var m *EventMetrics
	m.IncPublished("x")
	m.SetConnections("admin", 3)

	unregistered := NewEventMetrics(nil)
	unregistered.IncPublished("x")
	unregistered.IncNotified("")
}
