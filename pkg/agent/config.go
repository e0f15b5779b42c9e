package agent

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

//go:embed simulator.yaml
var defaultConfig []byte

type sensorConfig struct {
	ID                string  `yaml:"id"`
	Default           any     `yaml:"default"`
	Calibrated        any     `yaml:"calibrated"`
	Drift             float64 `yaml:"drift"`
	ChangeProbability float64 `yaml:"change_probability"`
}

type config struct {
	Sensors          []sensorConfig `yaml:"sensors"`
	TelemetryTypes   map[string]any `yaml:"telemetry_types"`
	CommandTemplates map[string]any `yaml:"command_templates"`
}

// loadConfig parses a simulator definition and returns the sensors together
// with the registration document announcing them.
func loadConfig(data []byte) ([]*sensor, []byte, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse simulator config: %w", err)
	}

	doc, err := json.Marshal(map[string]any{
		"telemetry_types":   cfg.TelemetryTypes,
		"command_templates": cfg.CommandTemplates,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode registration document: %w", err)
	}

	var types registry.Document
	if err := json.Unmarshal(doc, &types); err != nil {
		return nil, nil, fmt.Errorf("decode telemetry types: %w", err)
	}

	sensors := make([]*sensor, 0, len(cfg.Sensors))
	for _, sc := range cfg.Sensors {
		tt, ok := types.TelemetryTypes[sc.ID]
		if !ok {
			return nil, nil, fmt.Errorf("sensor %q has no telemetry type", sc.ID)
		}
		s, err := newSensor(sc, tt)
		if err != nil {
			return nil, nil, fmt.Errorf("sensor %q: %w", sc.ID, err)
		}
		sensors = append(sensors, s)
	}
	return sensors, doc, nil
}

func newSensor(sc sensorConfig, tt registry.TelemetryType) (*sensor, error) {
	def, err := event.ValueOf(sc.Default)
	if err != nil {
		return nil, err
	}
	cal, err := event.ValueOf(sc.Calibrated)
	if err != nil {
		return nil, err
	}

	s := &sensor{
		id:                sc.ID,
		value:             def,
		def:               def,
		calibrated:        cal,
		drift:             sc.Drift,
		changeProbability: sc.ChangeProbability,
	}

	switch tt.DataType {
	case registry.DataFloat, registry.DataInt:
		if tt.Range == nil || tt.Range.Min == nil || tt.Range.Max == nil {
			return nil, fmt.Errorf("numeric sensor needs a closed range")
		}
		s.numeric = true
		s.min, s.max = *tt.Range.Min, *tt.Range.Max
	default:
		if len(tt.Enum) == 0 {
			return nil, fmt.Errorf("discrete sensor needs an enum")
		}
		for _, v := range tt.Enum {
			s.options = append(s.options, v.String())
		}
	}
	return s, nil
}
