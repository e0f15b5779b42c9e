package agent

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/command"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/history"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

type harness struct {
	reg *registry.Registry
	b   *broadcast.Broadcaster
	x   *command.Executor
	sim *Simulator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	reg := registry.New()
	b := broadcast.New(history.New(1000))
	x := command.NewExecutor(reg, b, nil)

	opts = append([]Option{
		WithInterval(time.Hour),
		WithTimeUnit(time.Millisecond),
		WithRand(rand.New(rand.NewSource(1))),
	}, opts...)
	sim, err := New(reg, x, b, opts...)
	require.NoError(t, err)
	return &harness{reg: reg, b: b, x: x, sim: sim}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sim.Start(context.Background()))
	t.Cleanup(h.sim.Stop)
}

func (h *harness) dispatch(t *testing.T, raw string) *event.Result {
	t.Helper()
	cmd, err := h.x.HandleIncoming(context.Background(), nil, []byte(raw))
	require.NoError(t, err)
	return h.x.Execute(context.Background(), cmd)
}

func (h *harness) results(command string) []event.Result {
	var out []event.Result
	for _, e := range h.b.History().Query(history.Filter{Kind: event.KindCommandResult}).Events {
		r := e.(*event.CommandResult).Result
		if r.Command == command {
			out = append(out, r)
		}
	}
	return out
}

func (h *harness) waitResults(t *testing.T, command string, n int) []event.Result {
	t.Helper()
	var got []event.Result
	require.Eventually(t, func() bool {
		got = h.results(command)
		return len(got) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestStart_RegistersSchemaAndHandlers(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	s := h.reg.Summary()
	assert.True(t, s.DeviceConnected)
	assert.Equal(t, Source, s.Source)
	assert.Equal(t, []string{"humidity", "pressure", "system_status", "temperature"}, s.TelemetryTypes)
	assert.Equal(t, []string{"calibrate_sensors", "get_status", "reset_sensors", "set_sensor_value", "set_update_interval"}, s.AvailableCommands)
	assert.Equal(t, s.AvailableCommands, h.x.Handlers())
	assert.True(t, h.sim.Running())

	assert.ErrorIs(t, h.sim.Start(context.Background()), ErrAlreadyRunning)
}

func TestStart_EmitsValidTelemetry(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	var readings []event.Event
	require.Eventually(t, func() bool {
		readings = h.b.History().Query(history.Filter{Kind: event.KindData}).Events
		return len(readings) >= 4
	}, time.Second, 5*time.Millisecond)

	ids := make([]string, 0, 4)
	for _, e := range readings[:4] {
		tel := e.(*event.Telemetry)
		ids = append(ids, tel.ID)
		assert.NoError(t, h.reg.ValidateValue(tel.ID, tel.Value), tel.ID)
	}
	assert.Equal(t, []string{"temperature", "pressure", "humidity", "system_status"}, ids)

	online := h.b.History().Query(history.Filter{Kind: event.KindDeviceMessage, ID: "agent_status"})
	require.Equal(t, 1, online.Filtered)
	assert.Equal(t, "online", online.Events[0].(*event.DeviceMessage).Value["state"])
}

func TestStop_UnregistersAndRemovesHandlers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sim.Start(context.Background()))

	h.sim.Stop()
	h.sim.Stop()

	assert.False(t, h.sim.Running())
	assert.False(t, h.reg.Connected())
	assert.Empty(t, h.x.Handlers())

	before := h.b.History().Query(history.Filter{Kind: event.KindData}).Filtered
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, h.b.History().Query(history.Filter{Kind: event.KindData}).Filtered)

	require.NoError(t, h.sim.Start(context.Background()))
	defer h.sim.Stop()
	assert.True(t, h.reg.Connected())
}

// slowObserver accepts every payload after a fixed delay.
type slowObserver struct {
	id    string
	delay time.Duration
}

func (o *slowObserver) ID() string { return o.id }
func (o *slowObserver) Close() error { return nil }

func (o *slowObserver) Send(ctx context.Context, _ []byte) error {
	select {
	case <-time.After(o.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRestart_CommandsWorkAgain(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.sim.Start(context.Background()))
		res := h.dispatch(t, `{"command":"get_status"}`)
		require.NotNil(t, res)
		assert.Equal(t, event.StatusSuccess, res.Status)
		h.sim.Stop()
		assert.False(t, h.reg.Connected())
	}
}

func TestStart_WaitsForOverlappingStop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sim.Start(context.Background()))
	h.b.Connect(&slowObserver{id: "slow", delay: 100 * time.Millisecond})

	stopped := make(chan struct{})
	go func() {
		h.sim.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool { return !h.sim.Running() }, time.Second, time.Millisecond)

	require.NoError(t, h.sim.Start(context.Background()))
	t.Cleanup(h.sim.Stop)

	select {
	case <-stopped:
	default:
		t.Fatal("Start returned before the earlier Stop finished")
	}

	assert.True(t, h.sim.Running())
	assert.True(t, h.reg.Connected())
	assert.Equal(t, Source, h.reg.Source())
	assert.Len(t, h.x.Handlers(), 5)
	assert.NoError(t, h.reg.ValidateCommand("get_status", nil))
}

func TestSetUpdateInterval(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	res := h.dispatch(t, `{"command":"set_update_interval","parameters":{"interval":25}}`)
	require.NotNil(t, res)

	got := h.results("set_update_interval")
	require.Len(t, got, 1)
	assert.Equal(t, event.StatusSuccess, got[0].Status)
	assert.Equal(t, "Update interval set to 25 seconds", got[0].Message)
	assert.Equal(t, 25*time.Second, h.sim.Interval())

	res = h.dispatch(t, `{"command":"set_update_interval","parameters":{"interval":61.5}}`)
	assert.Equal(t, event.StatusError, res.Status)
	assert.Equal(t, "Interval must be between 0.1 and 60.0 seconds", res.Message)
	assert.Equal(t, 25*time.Second, h.sim.Interval())
}

func TestSetSensorValue(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	cases := []struct {
		raw     string
		status  event.Status
		message string
	}{
		{`{"command":"set_sensor_value","parameters":{"sensor_id":"temperature","value":"30"}}`, event.StatusSuccess, "Sensor temperature set to 30"},
		{`{"command":"set_sensor_value","parameters":{"sensor_id":"temperature","value":"40"}}`, event.StatusError, "Value must be between 18 and 35"},
		{`{"command":"set_sensor_value","parameters":{"sensor_id":"humidity","value":"wet"}}`, event.StatusError, "Invalid numeric value"},
		{`{"command":"set_sensor_value","parameters":{"sensor_id":"system_status","value":"warning"}}`, event.StatusSuccess, "Sensor system_status set to warning"},
		{`{"command":"set_sensor_value","parameters":{"sensor_id":"system_status","value":"on fire"}}`, event.StatusError, "Invalid value for system_status. Valid options: operational, warning, error, maintenance"},
	}
	for _, c := range cases {
		res := h.dispatch(t, c.raw)
		require.NotNil(t, res, c.raw)
		assert.Equal(t, c.status, res.Status, c.raw)
		assert.Equal(t, c.message, res.Message, c.raw)
	}

	status := h.dispatch(t, `{"command":"get_status"}`)
	values := status.Details["current_values"].(map[string]any)
	assert.Equal(t, 30.0, values["temperature"])
	assert.Equal(t, "warning", values["system_status"])
}

func TestResetSensors(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.dispatch(t, `{"command":"set_sensor_value","parameters":{"sensor_id":"pressure","value":"1000"}}`)
	res := h.dispatch(t, `{"command":"reset_sensors","parameters":{}}`)
	assert.Equal(t, "All sensors reset to default values", res.Message)

	status := h.dispatch(t, `{"command":"get_status"}`)
	values := status.Details["current_values"].(map[string]any)
	assert.Equal(t, 1013.25, values["pressure"])
	assert.Equal(t, "operational", values["system_status"])
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	res := h.dispatch(t, `{"command":"get_status","parameters":{}}`)
	require.NotNil(t, res)
	assert.Equal(t, event.StatusSuccess, res.Status)
	assert.Equal(t, true, res.Details["is_running"])
	assert.Equal(t, 4, res.Details["sensor_count"])
	assert.Equal(t, time.Hour.Seconds(), res.Details["update_interval"])
	assert.Len(t, res.Details["current_values"], 4)
}

func TestCalibrateSensors_PendingThenSuccess(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	res := h.dispatch(t, `{"command":"calibrate_sensors","parameters":{"duration":1}}`)
	assert.Nil(t, res, "calibration answers asynchronously")

	got := h.waitResults(t, "calibrate_sensors", 2)
	assert.Equal(t, event.StatusPending, got[0].Status)
	assert.Equal(t, "Calibration started, this will take a few seconds...", got[0].Message)

	assert.Equal(t, event.StatusSuccess, got[1].Status)
	assert.Equal(t, "Sensor calibration completed in 1 seconds", got[1].Message)
	assert.Equal(t, []string{"temperature", "pressure", "humidity", "system_status"}, got[1].Details["calibrated_sensors"])
	assert.Equal(t, 1.0, got[1].Details["duration"])

	status := h.dispatch(t, `{"command":"get_status"}`)
	values := status.Details["current_values"].(map[string]any)
	assert.Equal(t, 22.0, values["temperature"])
	assert.Equal(t, 50.0, values["humidity"])
}

func TestCalibrateSensors_ClampsDuration(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.dispatch(t, `{"command":"calibrate_sensors","parameters":{"duration":0.01}}`)
	got := h.waitResults(t, "calibrate_sensors", 2)
	assert.Equal(t, 1.0, got[1].Details["duration"])
}

func TestCalibrateSensors_DefaultDuration(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.dispatch(t, `{"command":"calibrate_sensors"}`)
	got := h.waitResults(t, "calibrate_sensors", 2)
	assert.Equal(t, "Sensor calibration completed in 5 seconds", got[1].Message)
}

func TestCalibrateSensors_StopCancelsBeforeUnregister(t *testing.T) {
	h := newHarness(t, WithTimeUnit(time.Second))
	require.NoError(t, h.sim.Start(context.Background()))

	h.dispatch(t, `{"command":"calibrate_sensors","parameters":{"duration":30}}`)
	h.sim.Stop()

	got := h.results("calibrate_sensors")
	require.Len(t, got, 2)
	assert.Equal(t, event.StatusPending, got[0].Status)
	assert.Equal(t, event.StatusError, got[1].Status)
	assert.Equal(t, "Calibration failed: agent stopped", got[1].Message)

	// the terminal result precedes the offline announcement
	all := h.b.History().Snapshot()
	var resultAt, offlineAt int
	for i, e := range all {
		switch v := e.(type) {
		case *event.CommandResult:
			if v.Result.Status.Terminal() {
				resultAt = i
			}
		case *event.DeviceMessage:
			if v.Value["state"] == "offline" {
				offlineAt = i
			}
		}
	}
	assert.Less(t, resultAt, offlineAt)
	assert.False(t, h.reg.Connected())
}
