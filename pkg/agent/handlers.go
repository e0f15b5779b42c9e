package agent

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

const (
	minInterval = 0.1
	maxInterval = 60.0

	defaultCalibration = 5.0
	minCalibration     = 1.0
	maxCalibration     = 30.0
)

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (s *Simulator) setUpdateInterval(_ context.Context, cmd *event.Command) (*event.Result, error) {
	v, _ := cmd.Param("interval")
	seconds, ok := v.AsFloat()
	if !ok || seconds < minInterval || seconds > maxInterval {
		return event.Failure(cmd.Name, "Interval must be between 0.1 and 60.0 seconds"), nil
	}

	s.mu.Lock()
	s.interval = time.Duration(seconds * float64(time.Second))
	s.mu.Unlock()

	return event.Success(cmd.Name, fmt.Sprintf("Update interval set to %s seconds", formatNumber(seconds)), nil), nil
}

func (s *Simulator) resetSensors(_ context.Context, cmd *event.Command) (*event.Result, error) {
	s.mu.Lock()
	for _, sn := range s.sensors {
		sn.value = sn.def
	}
	s.mu.Unlock()

	return event.Success(cmd.Name, "All sensors reset to default values", nil), nil
}

func (s *Simulator) sensor(id string) *sensor {
	for _, sn := range s.sensors {
		if sn.id == id {
			return sn
		}
	}
	return nil
}

func (s *Simulator) setSensorValue(_ context.Context, cmd *event.Command) (*event.Result, error) {
	idValue, _ := cmd.Param("sensor_id")
	id, _ := idValue.AsString()
	raw, ok := cmd.Param("value")
	if !ok || raw.IsNull() {
		return event.Failure(cmd.Name, "Value parameter is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sn := s.sensor(id)
	if sn == nil {
		return event.Failure(cmd.Name, "Unknown sensor: "+id), nil
	}

	if !sn.numeric {
		text := raw.String()
		if !sn.hasOption(text) {
			return event.Failure(cmd.Name, fmt.Sprintf("Invalid value for %s. Valid options: %s", id, strings.Join(sn.options, ", "))), nil
		}
		sn.value = event.String(text)
		return event.Success(cmd.Name, fmt.Sprintf("Sensor %s set to %s", id, text), nil), nil
	}

	f, err := numeric(raw)
	if err != nil {
		return event.Failure(cmd.Name, "Invalid numeric value"), nil
	}
	if f < sn.min || f > sn.max {
		return event.Failure(cmd.Name, fmt.Sprintf("Value must be between %s and %s", formatNumber(sn.min), formatNumber(sn.max))), nil
	}
	sn.value = event.Float(f)
	return event.Success(cmd.Name, fmt.Sprintf("Sensor %s set to %s", id, formatNumber(f)), nil), nil
}

func numeric(v event.Value) (float64, error) {
	if f, ok := v.AsFloat(); ok {
		return f, nil
	}
	text, ok := v.AsString()
	if !ok {
		return 0, fmt.Errorf("not a number: %s", v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	return f, nil
}

func (s *Simulator) getStatus(_ context.Context, cmd *event.Command) (*event.Result, error) {
	s.mu.Lock()
	values := make(map[string]any, len(s.sensors))
	for _, sn := range s.sensors {
		values[sn.id] = sn.value.Interface()
	}
	details := map[string]any{
		"is_running":      s.running,
		"update_interval": s.interval.Seconds(),
		"sensor_count":    len(s.sensors),
		"current_values":  values,
	}
	s.mu.Unlock()

	return event.Success(cmd.Name, "Simulator status retrieved", details), nil
}

// calibrateSensors answers asynchronously: a pending result now, and a
// terminal one once the clamped duration has elapsed or the simulator stops.
func (s *Simulator) calibrateSensors(ctx context.Context, cmd *event.Command) (*event.Result, error) {
	seconds := defaultCalibration
	if v, ok := cmd.Param("duration"); ok {
		if f, isNum := v.AsFloat(); isNum {
			seconds = f
		}
	}
	seconds = math.Max(minCalibration, math.Min(maxCalibration, seconds))

	s.mu.Lock()
	tasks, unit := s.tasks, s.timeUnit
	s.mu.Unlock()

	s.executor.Publish(ctx, event.Pending(cmd.Name, "Calibration started, this will take a few seconds..."))

	err := tasks.Go(cmd, func(ctx context.Context) (*event.Result, error) {
		timer := time.NewTimer(time.Duration(seconds * float64(unit)))
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return event.Failure(cmd.Name, "Calibration failed: agent stopped"), nil
		case <-timer.C:
		}

		s.mu.Lock()
		names := make([]string, 0, len(s.sensors))
		for _, sn := range s.sensors {
			sn.value = sn.calibrated
			names = append(names, sn.id)
		}
		s.mu.Unlock()

		return event.Success(cmd.Name,
			fmt.Sprintf("Sensor calibration completed in %s seconds", formatNumber(seconds)),
			map[string]any{
				"calibrated_sensors": names,
				"duration":           seconds,
			}), nil
	})
	if err != nil {
		return event.Failure(cmd.Name, "Calibration failed: "+err.Error()), nil
	}
	return nil, nil
}
