package registry

import (
	"strconv"
	"strings"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// ValidateValue checks v against the registered telemetry type name.
// Checks run in order (data type, range, enum) and the first failure is
// returned as a *ValidationError.
func (r *Registry) ValidateValue(name string, v event.Value) error {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return reject(ErrUnknownType, "unknown type")
	}

	if err := checkDataType(t.DataType, v); err != nil {
		return err
	}

	if t.Range != nil {
		if f, isNum := v.AsFloat(); isNum {
			if t.Range.Min != nil && f < *t.Range.Min {
				return reject(ErrOutOfRange, "Value must be greater than or equal to %s", formatBound(*t.Range.Min))
			}
			if t.Range.Max != nil && f > *t.Range.Max {
				return reject(ErrOutOfRange, "Value must be less than or equal to %s", formatBound(*t.Range.Max))
			}
		}
	}

	if len(t.Enum) > 0 && !contains(t.Enum, v) {
		return reject(ErrNotAllowed, "Value must be one of: %s", joinValues(t.Enum))
	}
	return nil
}

func checkDataType(dt DataType, v event.Value) error {
	switch dt {
	case DataFloat:
		if !v.IsNumber() {
			return reject(ErrValueType, "Value must be a float or int")
		}
	case DataInt:
		if v.Kind() != event.IntKind {
			return reject(ErrValueType, "Value must be an int")
		}
	case DataString:
		if v.Kind() != event.StringKind {
			return reject(ErrValueType, "Value must be a string")
		}
	case DataBoolean:
		if v.Kind() != event.BoolKind {
			return reject(ErrValueType, "Value must be a boolean")
		}
	case DataArray:
		if v.Kind() != event.ArrayKind {
			return reject(ErrValueType, "Value must be an array")
		}
	case DataObject:
		if v.Kind() != event.ObjectKind {
			return reject(ErrValueType, "Value must be an object")
		}
	}
	return nil
}

// ValidateCommand checks a command's parameters against its template.
// Required parameters are checked before unknown keys, then each supplied
// value is checked for type and enum membership.
func (r *Registry) ValidateCommand(name string, params map[string]event.Value) error {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return reject(ErrTemplateNotFound, "template not found for command %q", name)
	}

	for _, pname := range sortedKeys(t.Parameters) {
		if _, present := params[pname]; t.Parameters[pname].Required && !present {
			return reject(ErrMissingParameter, "Required parameter %q is missing", pname)
		}
	}

	for _, pname := range sortedKeys(params) {
		p, known := t.Parameters[pname]
		if !known {
			return reject(ErrUnknownParameter, "Unknown parameter %q for command %q", pname, name)
		}
		if err := checkParameter(name, pname, p, params[pname]); err != nil {
			return err
		}
	}
	return nil
}

func checkParameter(command, name string, p Parameter, v event.Value) *ValidationError {
	if !p.Type.Accepts(v) {
		return reject(ErrParameterType, "Parameter %q has invalid type, expected %s", name, p.Type)
	}
	if len(p.Enum) > 0 && !contains(p.Enum, v) {
		return reject(ErrNotAllowed, "Parameter %q value %q not in allowed values: %s", name, v.String(), joinValues(p.Enum))
	}
	return nil
}

// ApplyDefaults returns a copy of params with template defaults filled in
// for absent optional parameters. Unknown commands are returned unchanged.
func (r *Registry) ApplyDefaults(name string, params map[string]event.Value) map[string]event.Value {
	out := make(map[string]event.Value, len(params))
	for k, v := range params {
		out[k] = v
	}

	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return out
	}

	for pname, p := range t.Parameters {
		if _, present := out[pname]; !present && p.Default != nil {
			out[pname] = *p.Default
		}
	}
	return out
}

func contains(set []event.Value, v event.Value) bool {
	for _, e := range set {
		if e.Equal(v) {
			return true
		}
	}
	return false
}

func joinValues(vs []event.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
