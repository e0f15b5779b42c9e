package schema

import (
	"encoding/json"
	"testing"
)

func rangeSchema() json.RawMessage {
	return json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["data_type"],
		"properties": {
			"data_type": {"enum": ["int", "float", "string"]},
			"range": {
				"type": "object",
				"properties": {"min": {"type": "number"}, "max": {"type": "number"}},
				"additionalProperties": false
			}
		},
		"additionalProperties": false
	}`)
}

func TestValidate_ValidPayload(t *testing.T) {
	v := NewValidator()

	err := v.Validate(rangeSchema(), map[string]any{
		"data_type": "float",
		"range":     map[string]any{"min": float64(18), "max": float64(35)},
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_UnknownDataType(t *testing.T) {
	v := NewValidator()

	err := v.Validate(rangeSchema(), map[string]any{"data_type": "complex"})
	if err == nil {
		t.Error("expected validation error for unknown data_type")
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	v := NewValidator()

	err := v.Validate(rangeSchema(), map[string]any{})
	if err == nil {
		t.Error("expected validation error for missing data_type")
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.Validate(rangeSchema(), map[string]any{
		"data_type": "int",
		"colour":    "blue",
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidateJSON_DecodesNumbers(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(rangeSchema(), []byte(`{"data_type":"int","range":{"min":0,"max":100.5}}`))
	if err != nil {
		t.Errorf("expected valid document, got: %v", err)
	}

	err = v.ValidateJSON(rangeSchema(), []byte(`{"data_type":"int","range":{"min":"zero"}}`))
	if err == nil {
		t.Error("expected validation error for string bound")
	}
}

func TestValidateJSON_MalformedDocument(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateJSON(rangeSchema(), []byte(`{"data_type":`)); err == nil {
		t.Error("expected decode error for truncated document")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	// Empty schema means no validation
	for _, doc := range []json.RawMessage{nil, json.RawMessage(`{}`), json.RawMessage(` null `)} {
		if err := v.Validate(doc, map[string]any{"anything": "goes"}); err != nil {
			t.Errorf("schema %q should skip validation, got: %v", doc, err)
		}
	}
}

func TestValidate_BrokenSchema(t *testing.T) {
	v := NewValidator()

	err := v.Validate(json.RawMessage(`{"type": 12}`), map[string]any{})
	if err == nil {
		t.Error("expected compile error for broken schema")
	}
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()
	schema := rangeSchema()

	if err := v.Validate(schema, map[string]any{"data_type": "int"}); err != nil {
		t.Fatal(err)
	}
	if err := v.Validate(schema, map[string]any{"data_type": "string"}); err != nil {
		t.Fatal(err)
	}

	if n := v.Len(); n != 1 {
		t.Errorf("expected 1 cached schema, got %d", n)
	}
}
