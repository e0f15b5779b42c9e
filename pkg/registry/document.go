package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed registration.schema.json
var registrationSchema json.RawMessage

// Document is the wire form of a producer's configuration.
type Document struct {
	TelemetryTypes   map[string]TelemetryType   `json:"telemetry_types"`
	CommandTemplates map[string]CommandTemplate `json:"command_templates"`
}

// RegistrationSchema returns the JSON Schema that registration documents must satisfy.
func RegistrationSchema() json.RawMessage {
	return append(json.RawMessage(nil), registrationSchema...)
}

// RegisterDocument validates a raw configuration document against the
// registration schema, decodes it and registers it for source.
func (r *Registry) RegisterDocument(raw []byte, source string) error {
	if err := r.validator.ValidateJSON(registrationSchema, raw); err != nil {
		return &SchemaError{Source: source, Err: fmt.Errorf("%w: %v", ErrInvalidDefinition, err)}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &SchemaError{Source: source, Err: fmt.Errorf("%w: %v", ErrInvalidDefinition, err)}
	}
	return r.Register(doc.TelemetryTypes, doc.CommandTemplates, source)
}
