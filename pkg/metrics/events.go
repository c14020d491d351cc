package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics records outbox/bus publishing and websocket fan-out activity.
type EventMetrics struct {
	published   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	connections *prometheus.GaugeVec
	notified    *prometheus.CounterVec
}

// NewEventMetrics registers the event metrics on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Events successfully published to the bus.",
	}, []string{"topic"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failures_total",
		Help: "Event publish attempts that failed.",
	}, []string{"topic"})
	connections := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Live websocket connections by audience.",
	}, []string{"audience"})
	notified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notifications delivered by channel.",
	}, []string{"channel"})
	reg.MustRegister(published, failed, connections, notified)
	return &EventMetrics{
		published:   published,
		failed:      failed,
		connections: connections,
		notified:    notified,
	}
}

// IncPublished increments the publish counter for a topic.
func (m *EventMetrics) IncPublished(topic string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncPublishFailed increments the publish failure counter for a topic.
func (m *EventMetrics) IncPublishFailed(topic string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(topic)).Inc()
}

// SetConnections records the current live connection count for an audience.
func (m *EventMetrics) SetConnections(audience string, count int) {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.WithLabelValues(normalizeLabel(audience)).Set(float64(count))
}

// IncNotified increments the delivered-notification counter for a channel.
func (m *EventMetrics) IncNotified(channel string) {
	if m == nil || m.notified == nil {
		return
	}
	m.notified.WithLabelValues(normalizeLabel(channel)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
