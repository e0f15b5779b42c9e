package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

const validDocument = `{
	"telemetry_types": {
		"temperature": {"unit": "°C", "data_type": "float", "range": {"min": 18.0, "max": 35.0}, "description": "Ambient"},
		"system_status": {"unit": null, "data_type": "string", "enum": ["operational", "warning"], "description": "Status"}
	},
	"command_templates": {
		"calibrate_sensors": {
			"command": "calibrate_sensors",
			"description": "Calibrate",
			"parameters": {
				"duration": {"type": "float", "required": false, "default": 5.0}
			}
		},
		"set_update_interval": {
			"command": "set_update_interval",
			"description": "Interval",
			"parameters": {"interval": {"type": "float"}}
		}
	}
}`

func TestRegisterDocument(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterDocument([]byte(validDocument), "sim"))

	tpl, ok := r.Template("set_update_interval")
	require.True(t, ok)
	assert.True(t, tpl.Parameters["interval"].Required, "parameters default to required")

	cal, _ := r.Template("calibrate_sensors")
	require.NotNil(t, cal.Parameters["duration"].Default)
	assert.Equal(t, event.FloatKind, cal.Parameters["duration"].Default.Kind())

	assert.Error(t, r.ValidateValue("temperature", event.Float(36)))
	assert.NoError(t, r.ValidateValue("system_status", event.String("warning")))
}

func TestRegisterDocument_SchemaViolations(t *testing.T) {
	docs := map[string]string{
		"truncated":          `{"telemetry_types": {`,
		"unknown data_type":  `{"telemetry_types": {"x": {"data_type": "complex", "description": ""}}}`,
		"missing data_type":  `{"telemetry_types": {"x": {"description": ""}}}`,
		"unknown field":      `{"telemetry_types": {"x": {"data_type": "int", "description": "", "scale": 2}}}`,
		"bad parameter type": `{"command_templates": {"go": {"description": "", "parameters": {"p": {"type": "decimal"}}}}}`,
		"object enum entry":  `{"telemetry_types": {"x": {"data_type": "int", "description": "", "enum": [{"a": 1}]}}}`,
		"unknown section":    `{"devices": {}}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			r := New()
			require.NoError(t, r.RegisterDocument([]byte(validDocument), "sim"))

			err := r.RegisterDocument([]byte(doc), "other")
			assert.ErrorIs(t, err, ErrInvalidDefinition)
			assert.Equal(t, "sim", r.Source())
			assert.Equal(t, 2, r.Summary().TelemetryTypesCount)
		})
	}
}

func TestRegistrationSchema_IsCopy(t *testing.T) {
	doc := RegistrationSchema()
	doc[0] = 'x'
	assert.Equal(t, byte('{'), RegistrationSchema()[0])
}
