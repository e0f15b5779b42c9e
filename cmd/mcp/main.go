package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/telemetry-hub/pkg/hub"
	"github.com/urmzd/telemetry-hub/pkg/logging"
	hubmcp "github.com/urmzd/telemetry-hub/pkg/mcp"
)

func main() {
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/telemetry-hub/hub.db)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Also write JSON logs to this rotated file")
	noAgent := flag.Bool("no-agent", false, "Do not start the built-in telemetry simulator")
	flag.Parse()

	// Logging must go to stderr, stdout is the MCP transport
	closeLog, err := logging.Setup(logging.Options{Level: *logLevel, File: *logFile, Out: os.Stderr})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer func() { _ = closeLog() }()

	ctx := context.Background()

	cfg, err := hub.LoadConfig(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	h, err := hub.New(ctx, cfg, hub.Options{DisableAgent: *noAgent})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble hub")
	}
	if err := h.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start hub")
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to stop hub")
		}
	}()

	mcpServer := hubmcp.NewServer(h.Broadcaster, h.Registry, h.Executor, h.AgentState())

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
