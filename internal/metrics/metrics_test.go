package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObservePublish(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePublish("message", 3, 1)
	m.ObservePublish("message", 2, 0)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	req.Equal(2.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("message")))
	req.Equal(5.0, testutil.ToFloat64(m.deliveries))
	req.Equal(1.0, testutil.ToFloat64(m.dropped))
	req.Equal(1.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObservePublish("message", 1, 1)
		m.SessionOpened()
		m.SessionClosed()
		m.MessageSent()
		m.RateLimited("http")
	})
}
