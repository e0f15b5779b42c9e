// Package hub assembles the broadcaster, registry, executor and optional
// producers into one running telemetry hub.
package hub

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/agent"
	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/command"
	"github.com/urmzd/telemetry-hub/pkg/db"
	"github.com/urmzd/telemetry-hub/pkg/history"
	"github.com/urmzd/telemetry-hub/pkg/metrics"
	"github.com/urmzd/telemetry-hub/pkg/mirror"
	"github.com/urmzd/telemetry-hub/pkg/registry"
	"github.com/urmzd/telemetry-hub/pkg/serialbridge"
)

// Options selects the optional producers.
type Options struct {
	// DisableAgent skips the built-in telemetry simulator.
	DisableAgent bool
	// SerialPort, when set, bridges a device on that port.
	SerialPort string
	SerialBaud int
}

// Hub owns the core components of one process.
type Hub struct {
	Config      *db.Config
	Metrics     *metrics.Metrics
	Broadcaster *broadcast.Broadcaster
	Registry    *registry.Registry
	Executor    *command.Executor
	Agent       *agent.Simulator

	mirror *mirror.Redis
	serial *serialbridge.Bridge

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// LoadConfig opens the configuration database, bootstraps it on first run
// and returns the active configuration with environment overrides applied.
func LoadConfig(ctx context.Context, dbPath string) (*db.Config, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	if err := database.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("check bootstrap status: %w", err)
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
	}

	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New wires the core components for cfg. Optional collaborators that cannot
// be reached (Redis, the serial port) are logged and skipped.
func New(ctx context.Context, cfg *db.Config, opts Options) (*Hub, error) {
	h := &Hub{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	bopts := []broadcast.Option{
		broadcast.WithSendTimeout(cfg.SendTimeout),
		broadcast.WithMetrics(h.Metrics),
	}
	if cfg.MirrorAddr != "" {
		if m := connectMirror(ctx, cfg); m != nil {
			h.mirror = m
			bopts = append(bopts, broadcast.WithSink(m))
		}
	}

	h.Broadcaster = broadcast.New(history.New(cfg.HistoryCapacity), bopts...)
	h.Registry = registry.New()
	h.Executor = command.NewExecutor(h.Registry, h.Broadcaster, h.Metrics)

	if !opts.DisableAgent {
		sim, err := agent.New(h.Registry, h.Executor, h.Broadcaster, agent.WithInterval(cfg.UpdateInterval))
		if err != nil {
			return nil, fmt.Errorf("create simulator: %w", err)
		}
		h.Agent = sim
	}

	if opts.SerialPort != "" {
		port, err := serialbridge.Open(opts.SerialPort, opts.SerialBaud)
		if err != nil {
			log.Warn().Err(err).Str("port", opts.SerialPort).Msg("Serial device unavailable, continuing without it")
		} else {
			h.serial = serialbridge.New(port, h.Broadcaster, h.Registry, h.Metrics)
		}
	}

	return h, nil
}

func connectMirror(ctx context.Context, cfg *db.Config) *mirror.Redis {
	m, err := mirror.NewRedis(&redis.Options{Addr: cfg.MirrorAddr}, cfg.MirrorChannel)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid mirror configuration, continuing without it")
		return nil
	}
	if err := m.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.MirrorAddr).Msg("Redis unavailable, continuing without mirror")
		_ = m.Close()
		return nil
	}
	log.Info().Str("addr", cfg.MirrorAddr).Str("channel", m.Channel()).Msg("Mirroring broadcasts to Redis")
	return m
}

// AgentState returns the simulator as a running-state reporter, or nil when disabled.
func (h *Hub) AgentState() interface{ Running() bool } {
	if h.Agent == nil {
		return nil
	}
	return h.Agent
}

// Start launches the producers. They run until Close or ctx is cancelled.
func (h *Hub) Start(ctx context.Context) error {
	ctx, h.cancel = context.WithCancel(ctx)

	if h.Agent != nil {
		if err := h.Agent.Start(ctx); err != nil {
			h.cancel()
			return fmt.Errorf("start simulator: %w", err)
		}
	}

	if h.serial != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			if err := h.serial.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Serial bridge stopped")
			}
		}()
	}
	return nil
}

// Close stops the producers and releases the mirror connection.
func (h *Hub) Close() error {
	if h.Agent != nil {
		h.Agent.Stop()
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	if h.mirror != nil {
		return h.mirror.Close()
	}
	return nil
}
