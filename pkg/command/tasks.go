package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// ErrTasksStopped is returned when work is started on a stopped task group.
var ErrTasksStopped = errors.New("task group stopped")

// Work is the background part of a long-running command. It returns the
// terminal result to broadcast; an error becomes an error result.
type Work func(ctx context.Context) (*event.Result, error)

// Tasks runs the background work of long-running commands so that it can
// be cancelled and awaited as a unit.
type Tasks struct {
	exec   *Executor
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	active  int
}

// NewTasks creates a task group publishing results through x. The group is
// cancelled when parent is.
func (x *Executor) NewTasks(parent context.Context) *Tasks {
	ctx, cancel := context.WithCancel(parent)
	return &Tasks{exec: x, ctx: ctx, cancel: cancel}
}

// Go starts work for cmd in the background. Its result, or an error result
// if it fails or panics, is published when it returns.
func (t *Tasks) Go(cmd *event.Command, work Work) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return ErrTasksStopped
	}
	t.active++
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer func() {
			t.mu.Lock()
			t.active--
			t.mu.Unlock()
			t.wg.Done()
		}()

		res, err := runWork(t.ctx, work)
		if err != nil {
			log.Error().Err(err).Str("command", cmd.Name).Msg("Background command failed")
			res = event.Failure(cmd.Name, "Command execution failed: "+err.Error())
		}
		if res != nil {
			t.exec.Publish(context.WithoutCancel(t.ctx), res)
		}
	}()
	return nil
}

func runWork(ctx context.Context, work Work) (res *event.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return work(ctx)
}

// Active returns the number of running background units.
func (t *Tasks) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Stop cancels every running unit and waits for all of them to publish
// their final result. No work can be started afterwards.
func (t *Tasks) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}
