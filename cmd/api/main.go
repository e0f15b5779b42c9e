package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/api"
	"github.com/urmzd/telemetry-hub/pkg/hub"
	"github.com/urmzd/telemetry-hub/pkg/logging"
	hubmcp "github.com/urmzd/telemetry-hub/pkg/mcp"
	"github.com/urmzd/telemetry-hub/pkg/serialbridge"

	_ "github.com/urmzd/telemetry-hub/docs"
)

// @title           Telemetry Hub API
// @version         1.0
// @description     Real-time telemetry distribution and command interface

// @host      localhost:8000
// @BasePath  /api/v1
// @schemes   http https

func main() {
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/telemetry-hub/hub.db)")
	serialPort := flag.String("serial", "", "Serial port of a device emitting JSON lines (optional)")
	serialBaud := flag.Int("serial-baud", serialbridge.DefaultBaudRate, "Serial baud rate")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Also write JSON logs to this rotated file")
	noAgent := flag.Bool("no-agent", false, "Do not start the built-in telemetry simulator")
	flag.Parse()

	closeLog, err := logging.Setup(logging.Options{Level: *logLevel, File: *logFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := hub.LoadConfig(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("server", cfg.Name).
		Str("api_address", cfg.Address()).
		Int("history_capacity", cfg.HistoryCapacity).
		Dur("update_interval", cfg.UpdateInterval).
		Msg("Configuration loaded")

	h, err := hub.New(ctx, cfg, hub.Options{
		DisableAgent: *noAgent,
		SerialPort:   *serialPort,
		SerialBaud:   *serialBaud,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble hub")
	}
	if err := h.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start hub")
	}

	mcpServer := hubmcp.NewServer(h.Broadcaster, h.Registry, h.Executor, h.AgentState())

	router := api.NewRouter(api.Deps{
		Broadcaster:   h.Broadcaster,
		Registry:      h.Registry,
		Executor:      h.Executor,
		Metrics:       h.Metrics,
		Agent:         h.AgentState(),
		AllowedOrigin: cfg.AllowedOrigin,
		MCP:           mcpServer.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", srv.Addr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	if err := h.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to stop hub")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
