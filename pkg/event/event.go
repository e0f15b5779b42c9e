package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind is the discriminator carried by every event under the "type" key.
type Kind string

const (
	KindData          Kind = "data"
	KindCommand       Kind = "command"
	KindCommandResult Kind = "command_result"
	KindDeviceMessage Kind = "device_message"
)

// Valid reports whether k is one of the known event kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindData, KindCommand, KindCommandResult, KindDeviceMessage:
		return true
	}
	return false
}

// CommandResultID is the id carried by every command_result event.
const CommandResultID = "command_result"

var (
	// ErrUnknownKind indicates a payload whose "type" is not a known event kind
	ErrUnknownKind = errors.New("unknown event type")

	// ErrMissingCommand indicates a command payload without a command name
	ErrMissingCommand = errors.New("command name is required")
)

// Event is one discriminated message unit. The concrete types are
// *Telemetry, *Command, *CommandResult and *DeviceMessage; callers
// switch on the concrete type (or Kind) before reading variant fields.
type Event interface {
	Kind() Kind
	Time() time.Time
	json.Marshaler
}

// Telemetry is a single sensor reading.
type Telemetry struct {
	ID        string
	Value     Value
	Timestamp time.Time
}

// NewTelemetry returns a telemetry event stamped with the current time.
func NewTelemetry(id string, v Value) *Telemetry {
	return &Telemetry{ID: id, Value: v, Timestamp: time.Now()}
}

func (t *Telemetry) Kind() Kind      { return KindData }
func (t *Telemetry) Time() time.Time { return t.Timestamp }

func (t *Telemetry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind      `json:"type"`
		ID        string    `json:"id"`
		Value     Value     `json:"value"`
		Timestamp time.Time `json:"timestamp"`
	}{KindData, t.ID, t.Value, t.Timestamp})
}

// Command is a control request received from an observer.
type Command struct {
	Name       string
	Parameters map[string]Value
	Timestamp  time.Time
}

func (c *Command) Kind() Kind      { return KindCommand }
func (c *Command) Time() time.Time { return c.Timestamp }

func (c *Command) MarshalJSON() ([]byte, error) {
	params := c.Parameters
	if params == nil {
		params = map[string]Value{}
	}
	return json.Marshal(struct {
		Type       Kind             `json:"type"`
		Command    string           `json:"command"`
		Parameters map[string]Value `json:"parameters"`
		Timestamp  time.Time        `json:"timestamp"`
	}{KindCommand, c.Name, params, c.Timestamp})
}

// Param returns the named parameter.
func (c *Command) Param(name string) (Value, bool) {
	v, ok := c.Parameters[name]
	return v, ok
}

// Status is the lifecycle state reported in a command result.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether s ends a command's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Result is the outcome of a command, carried as the value of a command_result event.
type Result struct {
	Command string         `json:"command"`
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Pending returns a pending result for command.
func Pending(command, message string) *Result {
	return &Result{Command: command, Status: StatusPending, Message: message}
}

// Success returns a successful result for command.
func Success(command, message string, details map[string]any) *Result {
	return &Result{Command: command, Status: StatusSuccess, Message: message, Details: details}
}

// Failure returns an error result for command.
func Failure(command, message string) *Result {
	return &Result{Command: command, Status: StatusError, Message: message}
}

// CommandResult is the broadcast form of a Result.
type CommandResult struct {
	Result    Result
	Timestamp time.Time
}

// NewCommandResult wraps r in an event stamped with the current time.
func NewCommandResult(r Result) *CommandResult {
	return &CommandResult{Result: r, Timestamp: time.Now()}
}

func (r *CommandResult) Kind() Kind      { return KindCommandResult }
func (r *CommandResult) Time() time.Time { return r.Timestamp }

func (r *CommandResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind      `json:"type"`
		ID        string    `json:"id"`
		Value     Result    `json:"value"`
		Timestamp time.Time `json:"timestamp"`
	}{KindCommandResult, CommandResultID, r.Result, r.Timestamp})
}

// DeviceMessage is an out-of-band message from a device or agent.
type DeviceMessage struct {
	ID        string
	Value     map[string]any
	Timestamp time.Time
}

// NewDeviceMessage returns a device message stamped with the current time.
func NewDeviceMessage(id string, value map[string]any) *DeviceMessage {
	return &DeviceMessage{ID: id, Value: value, Timestamp: time.Now()}
}

func (d *DeviceMessage) Kind() Kind      { return KindDeviceMessage }
func (d *DeviceMessage) Time() time.Time { return d.Timestamp }

func (d *DeviceMessage) MarshalJSON() ([]byte, error) {
	value := d.Value
	if value == nil {
		value = map[string]any{}
	}
	return json.Marshal(struct {
		Type      Kind           `json:"type"`
		ID        string         `json:"id"`
		Value     map[string]any `json:"value"`
		Timestamp time.Time      `json:"timestamp"`
	}{KindDeviceMessage, d.ID, value, d.Timestamp})
}

// ID returns the id field of e. Commands carry no id.
func ID(e Event) (string, bool) {
	switch t := e.(type) {
	case *Telemetry:
		return t.ID, true
	case *CommandResult:
		return CommandResultID, true
	case *DeviceMessage:
		return t.ID, true
	}
	return "", false
}

// Decode parses a tagged event payload.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case KindData:
		var w struct {
			ID        string    `json:"id"`
			Value     Value     `json:"value"`
			Timestamp time.Time `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &Telemetry{ID: w.ID, Value: w.Value, Timestamp: w.Timestamp}, nil

	case KindCommand:
		cmd, ts, err := parseCommand(data)
		if err != nil {
			return nil, err
		}
		if len(ts) > 0 {
			if err := json.Unmarshal(ts, &cmd.Timestamp); err != nil {
				return nil, err
			}
		}
		return cmd, nil

	case KindCommandResult:
		var w struct {
			Value     Result    `json:"value"`
			Timestamp time.Time `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &CommandResult{Result: w.Value, Timestamp: w.Timestamp}, nil

	case KindDeviceMessage:
		var w struct {
			ID        string         `json:"id"`
			Value     map[string]any `json:"value"`
			Timestamp time.Time      `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return &DeviceMessage{ID: w.ID, Value: w.Value, Timestamp: w.Timestamp}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Type)
}

// ParseCommand parses an inbound command payload. The command name may be
// given as "command" or "name"; any "type" or "timestamp" sent by the client
// is ignored and the command is stamped with its receipt time.
func ParseCommand(data []byte) (*Command, error) {
	cmd, _, err := parseCommand(data)
	if err != nil {
		return nil, err
	}
	cmd.Timestamp = time.Now()
	return cmd, nil
}

func parseCommand(data []byte) (*Command, json.RawMessage, error) {
	var w struct {
		Command    string           `json:"command"`
		Name       string           `json:"name"`
		Parameters map[string]Value `json:"parameters"`
		Timestamp  json.RawMessage  `json:"timestamp"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return nil, nil, err
	}

	name := w.Command
	if name == "" {
		name = w.Name
	}
	if name == "" {
		return nil, nil, ErrMissingCommand
	}
	if w.Parameters == nil {
		w.Parameters = map[string]Value{}
	}
	return &Command{Name: name, Parameters: w.Parameters}, w.Timestamp, nil
}
