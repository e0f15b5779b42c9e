package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/registry/schema"
)

// Registry holds the telemetry types and command templates of the
// connected producer. A registration replaces every definition at once.
type Registry struct {
	mu          sync.RWMutex
	types       map[string]TelemetryType
	templates   map[string]CommandTemplate
	source      string
	connected   bool
	lastUpdated time.Time

	validator *schema.Validator
}

// New creates an empty registry waiting for a producer.
func New() *Registry {
	return &Registry{
		types:       make(map[string]TelemetryType),
		templates:   make(map[string]CommandTemplate),
		lastUpdated: time.Now(),
		validator:   schema.NewValidator(),
	}
}

// Register checks every definition and, if all are well formed, replaces
// the current configuration with them. On error nothing changes.
func (r *Registry) Register(types map[string]TelemetryType, templates map[string]CommandTemplate, source string) error {
	nextTypes := make(map[string]TelemetryType, len(types))
	for name, t := range types {
		if err := checkType(t); err != nil {
			return &SchemaError{Source: source, Entry: "telemetry type " + name, Err: err}
		}
		nextTypes[name] = t.clone()
	}

	nextTemplates := make(map[string]CommandTemplate, len(templates))
	for name, t := range templates {
		if t.Command == "" {
			t.Command = name
		}
		if err := checkTemplate(t); err != nil {
			return &SchemaError{Source: source, Entry: "command template " + name, Err: err}
		}
		nextTemplates[name] = t.clone()
	}

	r.mu.Lock()
	r.types = nextTypes
	r.templates = nextTemplates
	r.source = source
	r.connected = true
	r.lastUpdated = time.Now()
	r.mu.Unlock()

	log.Info().
		Str("source", source).
		Int("telemetry_types", len(nextTypes)).
		Int("command_templates", len(nextTemplates)).
		Msg("Configuration registered")
	return nil
}

// Unregister clears every definition and marks the producer disconnected.
func (r *Registry) Unregister(source string) {
	r.mu.Lock()
	r.clear()
	r.mu.Unlock()

	log.Info().Str("source", source).Msg("Configuration unregistered")
}

// Release unregisters only when source owns the current configuration. It
// reports whether the registry was cleared.
func (r *Registry) Release(source string) bool {
	r.mu.Lock()
	if !r.connected || r.source != source {
		r.mu.Unlock()
		return false
	}
	r.clear()
	r.mu.Unlock()

	log.Info().Str("source", source).Msg("Configuration released")
	return true
}

func (r *Registry) clear() {
	r.types = make(map[string]TelemetryType)
	r.templates = make(map[string]CommandTemplate)
	r.source = ""
	r.connected = false
	r.lastUpdated = time.Now()
}

func checkType(t TelemetryType) error {
	if !t.DataType.Valid() {
		return fmt.Errorf("%w: unsupported data_type %q", ErrInvalidDefinition, t.DataType)
	}
	if t.Range != nil && t.Range.Min != nil && t.Range.Max != nil && *t.Range.Min > *t.Range.Max {
		return fmt.Errorf("%w: range min %v exceeds max %v", ErrInvalidDefinition, *t.Range.Min, *t.Range.Max)
	}
	for _, v := range t.Enum {
		if !isLiteral(v) {
			return fmt.Errorf("%w: enum entries must be strings, numbers or booleans", ErrInvalidDefinition)
		}
	}
	return nil
}

func checkTemplate(t CommandTemplate) error {
	for pname, p := range t.Parameters {
		if !p.Type.Valid() {
			return fmt.Errorf("%w: parameter %q has unsupported type %q", ErrInvalidDefinition, pname, p.Type)
		}
		for _, v := range p.Enum {
			if !isLiteral(v) {
				return fmt.Errorf("%w: parameter %q enum entries must be strings, numbers or booleans", ErrInvalidDefinition, pname)
			}
		}
		if p.Default != nil {
			if err := checkParameter(t.Command, pname, p, *p.Default); err != nil {
				return fmt.Errorf("%w: default for parameter %q: %s", ErrInvalidDefinition, pname, err.Reason)
			}
		}
	}
	return nil
}

func isLiteral(v event.Value) bool {
	switch v.Kind() {
	case event.StringKind, event.IntKind, event.FloatKind, event.BoolKind:
		return true
	}
	return false
}

// Connected reports whether a producer configuration is registered.
func (r *Registry) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// Source returns the id of the producer owning the configuration, if any.
func (r *Registry) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// Available reports whether a producer is connected and declared at least one definition.
func (r *Registry) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableLocked()
}

func (r *Registry) availableLocked() bool {
	return r.connected && (len(r.types) > 0 || len(r.templates) > 0)
}

// TelemetryType returns the named telemetry type.
func (r *Registry) TelemetryType(name string) (TelemetryType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return TelemetryType{}, false
	}
	return t.clone(), true
}

// Template returns the named command template.
func (r *Registry) Template(name string) (CommandTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return CommandTemplate{}, false
	}
	return t.clone(), true
}

// TypeCatalog is a snapshot of every registered telemetry type.
type TypeCatalog struct {
	TelemetryTypes map[string]TelemetryType `json:"telemetry_types"`
	LastUpdated    time.Time                `json:"last_updated"`
}

// TemplateCatalog is a snapshot of every registered command template.
type TemplateCatalog struct {
	CommandTemplates map[string]CommandTemplate `json:"command_templates"`
	LastUpdated      time.Time                  `json:"last_updated"`
}

// TelemetryTypes returns a snapshot of the telemetry type catalogue.
func (r *Registry) TelemetryTypes() TypeCatalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]TelemetryType, len(r.types))
	for name, t := range r.types {
		out[name] = t.clone()
	}
	return TypeCatalog{TelemetryTypes: out, LastUpdated: r.lastUpdated}
}

// CommandTemplates returns a snapshot of the command template catalogue.
func (r *Registry) CommandTemplates() TemplateCatalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]CommandTemplate, len(r.templates))
	for name, t := range r.templates {
		out[name] = t.clone()
	}
	return TemplateCatalog{CommandTemplates: out, LastUpdated: r.lastUpdated}
}

// Summary describes the registry state for discovery clients.
type Summary struct {
	DeviceConnected        bool      `json:"device_connected"`
	Source                 string    `json:"source,omitempty"`
	TelemetryTypesCount    int       `json:"telemetry_types_count"`
	CommandTemplatesCount  int       `json:"command_templates_count"`
	LastUpdated            time.Time `json:"last_updated"`
	ConfigurationAvailable bool      `json:"configuration_available"`
	TelemetryTypes         []string  `json:"telemetry_types"`
	AvailableCommands      []string  `json:"available_commands"`
}

// Summary returns counts, key lists and connection state.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Summary{
		DeviceConnected:        r.connected,
		Source:                 r.source,
		TelemetryTypesCount:    len(r.types),
		CommandTemplatesCount:  len(r.templates),
		LastUpdated:            r.lastUpdated,
		ConfigurationAvailable: r.availableLocked(),
		TelemetryTypes:         sortedKeys(r.types),
		AvailableCommands:      sortedKeys(r.templates),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
