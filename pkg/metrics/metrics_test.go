package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.SetConnections(3)
	m.ObserveBroadcast("data", time.Millisecond)
	m.ObserveBroadcast("data", time.Millisecond)
	m.ObserveBroadcast("command_result", time.Millisecond)
	m.DeliveryFailed()
	m.SetHistorySize(42)
	m.CommandResult("success")
	m.CommandRejected()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.broadcasts.WithLabelValues("data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.broadcasts.WithLabelValues("command_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveryFailures))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.historySize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandResults.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandRejections))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SetConnections(1)
		m.ObserveBroadcast("data", time.Second)
		m.DeliveryFailed()
		m.SetHistorySize(1)
		m.CommandResult("error")
		m.CommandRejected()
		m.MirrorFailed()
		m.DeviceMessage()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetConnections(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "telemetry_connections 2")
}
