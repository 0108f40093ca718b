// Package metrics exposes prometheus collectors for the chat runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	eventsPublished *prometheus.CounterVec
	deliveries      prometheus.Counter
	dropped         prometheus.Counter
	activeSessions  prometheus.Gauge
	messagesSent    prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

// New registers collectors with reg. A nil reg builds unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "events_published_total",
			Help:      "Outbound events published, by event type.",
		}, []string{"type"}),
		deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "deliveries_total",
			Help:      "Frames enqueued to a recipient session.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "deliveries_dropped_total",
			Help:      "Frames dropped because a recipient buffer was full.",
		}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "sessions_active",
			Help:      "Live connections currently registered.",
		}),
		messagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_sent_total",
			Help:      "Messages appended to room histories.",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "rate_limited_total",
			Help:      "Requests or frames rejected by a rate limiter, by surface.",
		}, []string{"surface"}),
	}
}

func (m *Metrics) ObservePublish(eventType string, sent, dropped int) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
	m.deliveries.Add(float64(sent))
	m.dropped.Add(float64(dropped))
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) RateLimited(surface string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(surface).Inc()
}
