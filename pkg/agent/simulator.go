package agent

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/command"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// Source is the id the simulator registers its configuration under.
const Source = "telemetry_simulator"

// DefaultInterval is the time between two telemetry emissions.
const DefaultInterval = 2 * time.Second

// ErrAlreadyRunning is returned by Start on a running simulator.
var ErrAlreadyRunning = errors.New("simulator already running")

// Simulator is a telemetry producer. While running it owns the registry
// configuration and the command handlers it declares.
type Simulator struct {
	registry    *registry.Registry
	executor    *command.Executor
	broadcaster *broadcast.Broadcaster

	// lifecycle serialises Start and Stop end to end.
	lifecycle sync.Mutex

	mu       sync.Mutex
	sensors  []*sensor
	document []byte
	interval time.Duration
	timeUnit time.Duration
	rng      *rand.Rand

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	tasks   *command.Tasks
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval sets the initial emission interval.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRand sets the random source used to drift sensor values.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithTimeUnit scales calibration durations, which are expressed in seconds.
func WithTimeUnit(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.timeUnit = d
		}
	}
}

// New creates a stopped simulator from its embedded definition.
func New(reg *registry.Registry, x *command.Executor, b *broadcast.Broadcaster, opts ...Option) (*Simulator, error) {
	sensors, doc, err := loadConfig(defaultConfig)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		registry:    reg,
		executor:    x,
		broadcaster: b,
		sensors:     sensors,
		document:    doc,
		interval:    DefaultInterval,
		timeUnit:    time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Simulator) handlers() map[string]command.HandlerFunc {
	return map[string]command.HandlerFunc{
		"set_update_interval": s.setUpdateInterval,
		"reset_sensors":       s.resetSensors,
		"set_sensor_value":    s.setSensorValue,
		"get_status":          s.getStatus,
		"calibrate_sensors":   s.calibrateSensors,
	}
}

// Start registers the simulator's configuration and handlers and begins
// emitting telemetry until ctx is cancelled or Stop is called.
func (s *Simulator) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if err := s.registry.RegisterDocument(s.document, Source); err != nil {
		return err
	}

	s.tasks = s.executor.NewTasks(ctx)
	for name, fn := range s.handlers() {
		s.executor.Handle(name, fn)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(loopCtx, s.done)

	s.announce(ctx, "online")
	log.Info().Dur("interval", s.interval).Int("sensors", len(s.sensors)).Msg("Telemetry simulator started")
	return nil
}

// Stop halts emission, cancels and awaits background command work, removes
// the handlers and finally unregisters the configuration. Cancelled work
// reports its failure before the configuration disappears. A Start issued
// meanwhile waits until Stop has finished.
func (s *Simulator) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done, tasks := s.cancel, s.done, s.tasks
	s.mu.Unlock()

	cancel()
	<-done
	tasks.Stop()

	for name := range s.handlers() {
		s.executor.Remove(name)
	}
	s.announce(context.Background(), "offline")
	s.registry.Unregister(Source)

	log.Info().Msg("Telemetry simulator stopped")
}

// Running reports whether the simulator is emitting telemetry.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the current emission interval.
func (s *Simulator) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Simulator) announce(ctx context.Context, state string) {
	msg := event.NewDeviceMessage("agent_status", map[string]any{
		"source": Source,
		"state":  state,
	})
	if err := s.broadcaster.Broadcast(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Failed to announce simulator state")
	}
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.emit(ctx)
		timer.Reset(s.Interval())
	}
}

func (s *Simulator) emit(ctx context.Context) {
	s.mu.Lock()
	readings := make([]*event.Telemetry, 0, len(s.sensors))
	for _, sn := range s.sensors {
		readings = append(readings, event.NewTelemetry(sn.id, sn.step(s.rng)))
	}
	s.mu.Unlock()

	for _, r := range readings {
		if ctx.Err() != nil {
			return
		}
		if err := s.registry.ValidateValue(r.ID, r.Value); err != nil {
			log.Warn().Str("sensor", r.ID).Str("reason", err.Error()).Msg("Generated telemetry violates schema")
		}
		if err := s.broadcaster.Broadcast(ctx, r); err != nil {
			log.Error().Err(err).Str("sensor", r.ID).Msg("Failed to broadcast telemetry")
		}
	}
}
