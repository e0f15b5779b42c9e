package registry

import (
	"encoding/json"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// DataType is the declared kind of a telemetry value.
type DataType string

const (
	DataInt     DataType = "int"
	DataFloat   DataType = "float"
	DataString  DataType = "string"
	DataBoolean DataType = "boolean"
	DataArray   DataType = "array"
	DataObject  DataType = "object"
)

// Valid reports whether d is a known data type.
func (d DataType) Valid() bool {
	switch d {
	case DataInt, DataFloat, DataString, DataBoolean, DataArray, DataObject:
		return true
	}
	return false
}

// Range bounds a numeric telemetry value. Either end may be open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// TelemetryType describes one kind of telemetry reading
type TelemetryType struct {
	Unit        string        `json:"unit,omitempty"`
	DataType    DataType      `json:"data_type"`
	Range       *Range        `json:"range,omitempty"`
	Enum        []event.Value `json:"enum,omitempty"`
	Description string        `json:"description"`
}

// ParamType is the declared primitive type of a command parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamFloat   ParamType = "float"
	ParamInt     ParamType = "int"
	ParamBoolean ParamType = "boolean"
)

// Valid reports whether p is a known parameter type.
func (p ParamType) Valid() bool {
	switch p {
	case ParamString, ParamFloat, ParamInt, ParamBoolean:
		return true
	}
	return false
}

// Accepts reports whether v has primitive type p. Ints are accepted
// where floats are expected, never the reverse.
func (p ParamType) Accepts(v event.Value) bool {
	switch p {
	case ParamString:
		return v.Kind() == event.StringKind
	case ParamInt:
		return v.Kind() == event.IntKind
	case ParamFloat:
		return v.IsNumber()
	case ParamBoolean:
		return v.Kind() == event.BoolKind
	}
	return false
}

// Parameter describes one command parameter.
type Parameter struct {
	Type        ParamType     `json:"type"`
	Required    bool          `json:"required"`
	Enum        []event.Value `json:"enum,omitempty"`
	Default     *event.Value  `json:"default,omitempty"`
	Description string        `json:"description,omitempty"`
}

// UnmarshalJSON decodes a parameter. Parameters are required unless stated otherwise.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	type plain Parameter
	aux := plain{Required: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Parameter(aux)
	return nil
}

// CommandTemplate is the declared shape of an acceptable command.
type CommandTemplate struct {
	Command     string               `json:"command"`
	Description string               `json:"description"`
	Parameters  map[string]Parameter `json:"parameters"`
}

func (t TelemetryType) clone() TelemetryType {
	if t.Range != nil {
		t.Range = &Range{Min: copyFloat(t.Range.Min), Max: copyFloat(t.Range.Max)}
	}
	t.Enum = append([]event.Value(nil), t.Enum...)
	return t
}

func (t CommandTemplate) clone() CommandTemplate {
	params := make(map[string]Parameter, len(t.Parameters))
	for name, p := range t.Parameters {
		p.Enum = append([]event.Value(nil), p.Enum...)
		if p.Default != nil {
			d := *p.Default
			p.Default = &d
		}
		params[name] = p
	}
	t.Parameters = params
	return t
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
