package serialbridge

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/history"
	"github.com/urmzd/telemetry-hub/pkg/metrics"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	lo, hi := 0.0, 100.0
	reg := registry.New()
	require.NoError(t, reg.Register(map[string]registry.TelemetryType{
		"humidity": {Unit: "%", DataType: registry.DataFloat, Range: &registry.Range{Min: &lo, Max: &hi}, Description: "Relative humidity"},
	}, nil, "serial"))
	return reg
}

func runLines(t *testing.T, reg *registry.Registry, lines ...string) (*history.Log, *metrics.Metrics) {
	t.Helper()
	h := history.New(50)
	m := metrics.New()
	b := broadcast.New(h)

	r, w := io.Pipe()
	br := New(r, b, reg, m)

	done := make(chan error, 1)
	go func() { done <- br.Run(context.Background()) }()

	for _, l := range lines {
		_, err := io.WriteString(w, l+"\n")
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not finish")
	}
	return h, m
}

func TestBridge_DeviceMessageWithID(t *testing.T) {
	h, m := runLines(t, nil, `{"id":"device_status","value":{"battery":0.82}}`)

	events := h.Snapshot()
	require.Len(t, events, 1)
	msg, ok := events[0].(*event.DeviceMessage)
	require.True(t, ok)
	assert.Equal(t, "device_status", msg.ID)
	assert.Equal(t, 0.82, msg.Value["battery"])
	expected := `
# HELP telemetry_serial_messages_total Total device messages read from the serial bridge
# TYPE telemetry_serial_messages_total counter
telemetry_serial_messages_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "telemetry_serial_messages_total"))
}

func TestBridge_BareObjectGetsDefaultID(t *testing.T) {
	h, _ := runLines(t, nil, `{"uptime": 42, "firmware": "1.2.0"}`)

	events := h.Snapshot()
	require.Len(t, events, 1)
	id, _ := event.ID(events[0])
	assert.Equal(t, DefaultMessageID, id)
}

func TestBridge_ScalarValueBecomesTelemetry(t *testing.T) {
	h, _ := runLines(t, newRegistry(t), `{"id":"humidity","value":48.5}`)

	events := h.Snapshot()
	require.Len(t, events, 1)
	reading, ok := events[0].(*event.Telemetry)
	require.True(t, ok)
	assert.Equal(t, "humidity", reading.ID)
	assert.Equal(t, event.FloatKind, reading.Value.Kind())
}

func TestBridge_DropsInvalidLines(t *testing.T) {
	h, _ := runLines(t, newRegistry(t),
		`not json`,
		`[1, 2, 3]`,
		``,
		`{"id":"humidity","value":140.0}`,
		`{"id":"","value":1}`,
		`{"id":"humidity","value":50}`,
	)

	events := h.Snapshot()
	require.Len(t, events, 1)
	data, err := json.Marshal(events[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":50`)
}

func TestBridge_StopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	br := New(r, broadcast.New(history.New(5)), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- br.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge ignored cancellation")
	}
}
