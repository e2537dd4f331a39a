package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/channels/:id/messages", "POST", 201, 5*time.Millisecond)
	m.RecordRequest("/channels/:id/messages", "POST", 201, 7*time.Millisecond)
	m.RecordError("/handoffs/:id", "PATCH", "INVALID_TRANSITION")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.EventPublished("channel", "message.created")
	m.EventDelivered("channel", 3, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/channels/:id/messages", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/handoffs/:id", "PATCH", "INVALID_TRANSITION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.eventsDelivered.WithLabelValues("channel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped.WithLabelValues("channel")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.SessionOpened()
		m.SessionClosed()
		m.EventPublished("channel", "x")
		m.EventDelivered("channel", 1, 0)
	})
}
