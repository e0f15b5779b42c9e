package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/history"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

type fixture struct {
	reg      *registry.Registry
	b        *broadcast.Broadcaster
	x        *Executor
	observer *broadcast.ChannelObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.Register(nil, map[string]registry.CommandTemplate{
		"set_update_interval": {
			Description: "Change the update frequency",
			Parameters: map[string]registry.Parameter{
				"interval": {Type: registry.ParamFloat, Required: true},
			},
		},
		"slow": {
			Description: "Long running",
			Parameters: map[string]registry.Parameter{
				"duration": {Type: registry.ParamFloat, Required: false, Default: ptrValue(event.Float(1))},
			},
		},
	}, "test"))

	b := broadcast.New(history.New(100))
	o := broadcast.NewChannelObserver("observer", 32)
	b.Connect(o)

	return &fixture{reg: reg, b: b, x: NewExecutor(reg, b, nil), observer: o}
}

func ptrValue(v event.Value) *event.Value { return &v }

func (f *fixture) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case payload := <-f.observer.Events():
		var m map[string]any
		require.NoError(t, json.Unmarshal(payload, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func (f *fixture) nextResult(t *testing.T) map[string]any {
	t.Helper()
	for {
		m := f.next(t)
		if m["type"] == "command_result" {
			return m["value"].(map[string]any)
		}
	}
}

func (f *fixture) results() []event.Result {
	var out []event.Result
	for _, e := range f.b.History().Query(history.Filter{Kind: event.KindCommandResult}).Events {
		out = append(out, e.(*event.CommandResult).Result)
	}
	return out
}

func setInterval(_ context.Context, cmd *event.Command) (*event.Result, error) {
	v, _ := cmd.Param("interval")
	f, _ := v.AsFloat()
	if f < 0.1 || f > 60 {
		return event.Failure(cmd.Name, "Interval must be between 0.1 and 60.0 seconds"), nil
	}
	return event.Success(cmd.Name, fmt.Sprintf("Update interval set to %s seconds", v), nil), nil
}

func TestExecute_SynchronousSuccess(t *testing.T) {
	f := newFixture(t)
	f.x.Handle("set_update_interval", setInterval)

	cmd, err := f.x.HandleIncoming(context.Background(), f.observer,
		[]byte(`{"command":"set_update_interval","parameters":{"interval":25}}`))
	require.NoError(t, err)

	res := f.x.Execute(context.Background(), cmd)
	require.NotNil(t, res)

	got := f.results()
	require.Len(t, got, 1)
	assert.Equal(t, event.StatusSuccess, got[0].Status)
	assert.Contains(t, got[0].Message, "25")
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	res := f.x.Execute(context.Background(), &event.Command{Name: "foo", Timestamp: time.Now()})
	require.NotNil(t, res)

	got := f.results()
	require.Len(t, got, 1)
	assert.Equal(t, event.StatusError, got[0].Status)
	assert.Contains(t, got[0].Message, "foo")
	assert.Equal(t, "Unknown command: foo", got[0].Message)
}

func TestExecute_HandlerErrorBecomesResult(t *testing.T) {
	f := newFixture(t)
	f.x.Handle("set_update_interval", func(context.Context, *event.Command) (*event.Result, error) {
		return nil, errors.New("disk on fire")
	})

	f.x.Execute(context.Background(), &event.Command{Name: "set_update_interval"})

	got := f.results()
	require.Len(t, got, 1)
	assert.Equal(t, event.StatusError, got[0].Status)
	assert.Equal(t, "Command execution failed: disk on fire", got[0].Message)
}

func TestExecute_HandlerPanicBecomesResult(t *testing.T) {
	f := newFixture(t)
	f.x.Handle("set_update_interval", func(context.Context, *event.Command) (*event.Result, error) {
		var m map[string]int
		m["boom"] = 1
		return nil, nil
	})

	assert.NotPanics(t, func() {
		f.x.Execute(context.Background(), &event.Command{Name: "set_update_interval"})
	})

	got := f.results()
	require.Len(t, got, 1)
	assert.Equal(t, event.StatusError, got[0].Status)
	assert.Contains(t, got[0].Message, "Command execution failed: panic")
}

func TestExecute_UnserialisableDetailsFallBack(t *testing.T) {
	f := newFixture(t)
	f.x.Handle("set_update_interval", func(_ context.Context, cmd *event.Command) (*event.Result, error) {
		return event.Success(cmd.Name, "ok", map[string]any{"bad": make(chan int)}), nil
	})

	f.x.Execute(context.Background(), &event.Command{Name: "set_update_interval"})

	got := f.results()
	require.Len(t, got, 1)
	assert.Equal(t, event.StatusError, got[0].Status)
	assert.Contains(t, got[0].Message, "Command execution failed")
}

func TestExecute_AsynchronousLifecycle(t *testing.T) {
	f := newFixture(t)
	tasks := f.x.NewTasks(context.Background())
	defer tasks.Stop()

	f.x.Handle("slow", func(ctx context.Context, cmd *event.Command) (*event.Result, error) {
		f.x.Publish(ctx, event.Pending(cmd.Name, "started"))
		return nil, tasks.Go(cmd, func(ctx context.Context) (*event.Result, error) {
			select {
			case <-time.After(20 * time.Millisecond):
				return event.Success(cmd.Name, "done", map[string]any{"calibrated_sensors": []string{"a", "b"}}), nil
			case <-ctx.Done():
				return event.Failure(cmd.Name, "stopped"), nil
			}
		})
	})

	cmd, err := f.x.HandleIncoming(context.Background(), f.observer, []byte(`{"command":"slow","parameters":{}}`))
	require.NoError(t, err)
	assert.Nil(t, f.x.Execute(context.Background(), cmd))

	first := f.nextResult(t)
	assert.Equal(t, "pending", first["status"])

	second := f.nextResult(t)
	assert.Equal(t, "success", second["status"])
	assert.Equal(t, []any{"a", "b"}, second["details"].(map[string]any)["calibrated_sensors"])
}

func TestTasks_StopCancelsAndAwaits(t *testing.T) {
	f := newFixture(t)
	tasks := f.x.NewTasks(context.Background())
	cmd := &event.Command{Name: "slow"}

	started := make(chan struct{})
	require.NoError(t, tasks.Go(cmd, func(ctx context.Context) (*event.Result, error) {
		close(started)
		<-ctx.Done()
		return event.Failure(cmd.Name, "Calibration failed: agent stopped"), nil
	}))
	<-started
	assert.Equal(t, 1, tasks.Active())

	tasks.Stop()

	assert.Equal(t, 0, tasks.Active())
	got := f.results()
	require.Len(t, got, 1)
	assert.Equal(t, "Calibration failed: agent stopped", got[0].Message)

	assert.ErrorIs(t, tasks.Go(cmd, func(context.Context) (*event.Result, error) { return nil, nil }), ErrTasksStopped)
}

func TestTasks_ErrorAndPanicBecomeResults(t *testing.T) {
	f := newFixture(t)
	tasks := f.x.NewTasks(context.Background())
	cmd := &event.Command{Name: "slow"}

	require.NoError(t, tasks.Go(cmd, func(context.Context) (*event.Result, error) {
		return nil, errors.New("sensor offline")
	}))
	require.NoError(t, tasks.Go(cmd, func(context.Context) (*event.Result, error) {
		panic("unreachable sensor")
	}))
	tasks.Stop()

	got := f.results()
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, event.StatusError, r.Status)
		assert.Contains(t, r.Message, "Command execution failed")
	}
}

func TestHandleIncoming_InvalidJSON(t *testing.T) {
	f := newFixture(t)

	_, err := f.x.HandleIncoming(context.Background(), f.observer, []byte(`{"command": `))
	assert.ErrorIs(t, err, ErrMalformed)

	assert.Equal(t, map[string]any{"error": "Invalid JSON format"}, f.next(t))
	assert.Equal(t, 0, f.b.History().Len())
}

func TestHandleIncoming_MissingName(t *testing.T) {
	f := newFixture(t)

	_, err := f.x.HandleIncoming(context.Background(), f.observer, []byte(`{"parameters": {}}`))
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, f.next(t)["error"], "Message parsing error")
}

func TestHandleIncoming_ValidationFailureRepliesToSenderOnly(t *testing.T) {
	f := newFixture(t)
	other := broadcast.NewChannelObserver("other", 4)
	f.b.Connect(other)

	_, err := f.x.HandleIncoming(context.Background(), f.observer,
		[]byte(`{"command":"set_update_interval","parameters":{"interval":"fast"}}`))
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, registry.ErrParameterType)

	assert.Equal(t, `Command validation failed: Parameter "interval" has invalid type, expected float`, f.next(t)["error"])
	assert.Len(t, other.Events(), 0)
	assert.Equal(t, 0, f.b.History().Len())
}

func TestHandleIncoming_NilObserver(t *testing.T) {
	f := newFixture(t)

	_, err := f.x.HandleIncoming(context.Background(), nil, []byte(`{"command":"nope"}`))
	assert.ErrorIs(t, err, registry.ErrTemplateNotFound)
	assert.Len(t, f.observer.Events(), 0)
}

func TestHandleIncoming_AcceptedCommandIsBroadcastWithDefaults(t *testing.T) {
	f := newFixture(t)

	cmd, err := f.x.HandleIncoming(context.Background(), f.observer, []byte(`{"name":"slow"}`))
	require.NoError(t, err)

	d, ok := cmd.Param("duration")
	require.True(t, ok)
	assert.True(t, d.Equal(event.Float(1)))

	m := f.next(t)
	assert.Equal(t, "command", m["type"])
	assert.Equal(t, "slow", m["command"])
	assert.Equal(t, 1, f.b.History().Query(history.Filter{Kind: event.KindCommand}).Filtered)
}

func TestHandlers_RemoveAndList(t *testing.T) {
	f := newFixture(t)
	f.x.Handle("b", setInterval)
	f.x.Handle("a", setInterval)
	assert.Equal(t, []string{"a", "b"}, f.x.Handlers())

	f.x.Remove("a", "b", "missing")
	assert.Empty(t, f.x.Handlers())
}

func TestHistory_TypeFilterAfterMixedBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.b.Broadcast(ctx, event.NewTelemetry("temperature", event.Float(22))))
	require.NoError(t, f.b.Broadcast(ctx, event.NewTelemetry("humidity", event.Float(45))))
	_, err := f.x.HandleIncoming(ctx, nil, []byte(`{"command":"set_update_interval","parameters":{"interval":2}}`))
	require.NoError(t, err)

	got := f.b.History().Query(history.Filter{Kind: event.KindData})
	assert.Equal(t, 2, got.Filtered)
	assert.Equal(t, 3, got.Total)
}
