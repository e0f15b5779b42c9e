package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/metrics"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

var (
	// ErrMalformed indicates an inbound payload that could not be parsed as a command
	ErrMalformed = errors.New("malformed command")

	// ErrRejected indicates a command that failed schema validation
	ErrRejected = errors.New("command validation failed")
)

// HandlerFunc executes one command. Returning a nil result and a nil error
// means the handler answers asynchronously: it publishes a pending result
// itself and a terminal one later.
type HandlerFunc func(ctx context.Context, cmd *event.Command) (*event.Result, error)

// Executor validates inbound commands, dispatches them to named handlers and
// broadcasts their results.
type Executor struct {
	registry    *registry.Registry
	broadcaster *broadcast.Broadcaster
	metrics     *metrics.Metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewExecutor creates an executor validating against reg and publishing through b.
func NewExecutor(reg *registry.Registry, b *broadcast.Broadcaster, m *metrics.Metrics) *Executor {
	return &Executor{
		registry:    reg,
		broadcaster: b,
		metrics:     m,
		handlers:    make(map[string]HandlerFunc),
	}
}

// Handle registers fn for the named command, replacing any previous handler.
func (x *Executor) Handle(name string, fn HandlerFunc) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.handlers[name] = fn
}

// Remove drops the handlers for the named commands.
func (x *Executor) Remove(names ...string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, name := range names {
		delete(x.handlers, name)
	}
}

// Handlers returns the names of every registered handler, sorted.
func (x *Executor) Handlers() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	names := make([]string, 0, len(x.handlers))
	for name := range x.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// personalError is the acknowledgement sent to an observer whose command was refused.
type personalError struct {
	Error string `json:"error"`
}

// HandleIncoming parses and validates a raw command payload from an
// observer. A refused payload is answered to from alone (when from is not
// nil) and reported as an error wrapping ErrMalformed or ErrRejected.
// Accepted commands get their template defaults and are broadcast.
func (x *Executor) HandleIncoming(ctx context.Context, from broadcast.Observer, raw []byte) (*event.Command, error) {
	cmd, err := event.ParseCommand(raw)
	if err != nil {
		x.metrics.CommandRejected()

		var syntaxErr *json.SyntaxError
		reply := "Message parsing error: " + err.Error()
		if errors.As(err, &syntaxErr) || !json.Valid(raw) {
			reply = "Invalid JSON format"
		}
		log.Warn().Err(err).Msg("Unparseable command payload")
		x.reply(ctx, from, reply)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := x.registry.ValidateCommand(cmd.Name, cmd.Parameters); err != nil {
		x.metrics.CommandRejected()
		log.Warn().Str("command", cmd.Name).Str("reason", err.Error()).Msg("Invalid command received")
		x.reply(ctx, from, "Command validation failed: "+err.Error())
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}

	cmd.Parameters = x.registry.ApplyDefaults(cmd.Name, cmd.Parameters)
	log.Info().Str("command", cmd.Name).Interface("parameters", cmd.Parameters).Msg("Received valid command")

	if err := x.broadcaster.Broadcast(ctx, cmd); err != nil {
		log.Error().Err(err).Str("command", cmd.Name).Msg("Failed to broadcast command")
	}
	return cmd, nil
}

func (x *Executor) reply(ctx context.Context, to broadcast.Observer, message string) {
	if to == nil {
		return
	}
	if err := x.broadcaster.SendTo(ctx, to, personalError{Error: message}); err != nil {
		log.Debug().Err(err).Str("observer", to.ID()).Msg("Could not acknowledge refused command")
	}
}

// Execute runs the handler for cmd and broadcasts its result. Unknown
// commands and handler faults become error results; nothing is returned as
// an error. The broadcast result is returned, or nil when the handler
// answers asynchronously.
func (x *Executor) Execute(ctx context.Context, cmd *event.Command) *event.Result {
	x.mu.RLock()
	fn, ok := x.handlers[cmd.Name]
	x.mu.RUnlock()

	var result *event.Result
	if !ok {
		log.Warn().Str("command", cmd.Name).Msg("No handler for command")
		result = event.Failure(cmd.Name, "Unknown command: "+cmd.Name)
	} else {
		res, err := invoke(ctx, fn, cmd)
		switch {
		case err != nil:
			log.Error().Err(err).Str("command", cmd.Name).Msg("Command execution failed")
			result = event.Failure(cmd.Name, "Command execution failed: "+err.Error())
		case res == nil:
			return nil
		default:
			result = res
		}
	}

	x.Publish(ctx, result)
	return result
}

func invoke(ctx context.Context, fn HandlerFunc, cmd *event.Command) (res *event.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, cmd)
}

// Publish broadcasts r as a command_result event. If r cannot be
// serialised, an error result without details is broadcast in its place.
func (x *Executor) Publish(ctx context.Context, r *event.Result) {
	err := x.broadcaster.Broadcast(ctx, event.NewCommandResult(*r))
	if err == nil {
		x.metrics.CommandResult(string(r.Status))
		return
	}

	log.Error().Err(err).Str("command", r.Command).Msg("Failed to broadcast command result")
	fallback := event.Failure(r.Command, "Command execution failed: "+err.Error())
	if err := x.broadcaster.Broadcast(ctx, event.NewCommandResult(*fallback)); err != nil {
		log.Error().Err(err).Str("command", r.Command).Msg("Failed to broadcast fallback result")
		return
	}
	x.metrics.CommandResult(string(fallback.Status))
}
