package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/command"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// AgentState reports whether the in-process producer is running.
type AgentState interface {
	Running() bool
}

// Server exposes the hub's discovery, history and command surface as MCP tools
type Server struct {
	mcpServer   *server.MCPServer
	broadcaster *broadcast.Broadcaster
	registry    *registry.Registry
	executor    *command.Executor
	agent       AgentState
}

// NewServer creates a new MCP server over the given hub components. agent may be nil.
func NewServer(b *broadcast.Broadcaster, reg *registry.Registry, x *command.Executor, agent AgentState) *Server {
	s := &Server{
		broadcaster: b,
		registry:    reg,
		executor:    x,
		agent:       agent,
	}

	s.mcpServer = server.NewMCPServer(
		"telemetry-hub",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler returns a streamable HTTP transport for mounting on the API router.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}
