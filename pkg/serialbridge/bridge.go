package serialbridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/metrics"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// DefaultMessageID is the id given to device messages that do not name one.
const DefaultMessageID = "device_data"

// maxLine bounds a single device line.
const maxLine = 64 * 1024

// Bridge turns newline-delimited JSON from a device into broadcast events.
//
// A line {"id": "...", "value": {...}} becomes a device_message. A line whose
// value is not an object becomes a telemetry reading and is dropped unless it
// satisfies the registered telemetry type. Any other object becomes a
// device_message with id DefaultMessageID.
type Bridge struct {
	src         io.ReadCloser
	broadcaster *broadcast.Broadcaster
	registry    *registry.Registry
	metrics     *metrics.Metrics
}

// New creates a bridge reading from src.
func New(src io.ReadCloser, b *broadcast.Broadcaster, reg *registry.Registry, m *metrics.Metrics) *Bridge {
	return &Bridge{src: src, broadcaster: b, registry: reg, metrics: m}
}

// Run reads lines until the source is exhausted or ctx is cancelled. The
// source is closed when Run returns.
func (br *Bridge) Run(ctx context.Context) error {
	var once sync.Once
	closeSrc := func() { once.Do(func() { _ = br.src.Close() }) }
	defer closeSrc()

	stop := context.AfterFunc(ctx, closeSrc)
	defer stop()

	scanner := bufio.NewScanner(br.src)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		e, err := br.parse(line)
		if err != nil {
			log.Warn().Err(err).Str("line", string(line)).Msg("Dropping device line")
			continue
		}
		br.metrics.DeviceMessage()
		if err := br.broadcaster.Broadcast(ctx, e); err != nil {
			log.Error().Err(err).Msg("Failed to broadcast device event")
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read device stream: %w", err)
	}
	return nil
}

func (br *Bridge) parse(line []byte) (event.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}

	rawID, hasID := fields["id"]
	rawValue, hasValue := fields["value"]
	if !hasID || !hasValue {
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, err
		}
		return event.NewDeviceMessage(DefaultMessageID, obj), nil
	}

	var id string
	if err := json.Unmarshal(rawID, &id); err != nil || id == "" {
		return nil, fmt.Errorf("id must be a non-empty string")
	}

	var value event.Value
	if err := json.Unmarshal(rawValue, &value); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	if value.Kind() == event.ObjectKind {
		obj, _ := value.Interface().(map[string]any)
		return event.NewDeviceMessage(id, obj), nil
	}

	if br.registry != nil {
		if err := br.registry.ValidateValue(id, value); err != nil {
			return nil, fmt.Errorf("telemetry %q: %w", id, err)
		}
	}
	return event.NewTelemetry(id, value), nil
}
