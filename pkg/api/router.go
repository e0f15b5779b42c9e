package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/urmzd/telemetry-hub/pkg/api/handlers"
	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/command"
	"github.com/urmzd/telemetry-hub/pkg/metrics"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// Deps are the core components the HTTP boundary calls into.
type Deps struct {
	Broadcaster *broadcast.Broadcaster
	Registry    *registry.Registry
	Executor    *command.Executor
	Metrics     *metrics.Metrics
	// Agent is optional.
	Agent handlers.AgentState
	// AllowedOrigin is the CORS and websocket origin; empty allows any.
	AllowedOrigin string
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   Deps
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine, deps.AllowedOrigin)

	router := &Router{
		engine: engine,
		deps:   deps,
	}

	router.setupRoutes()

	return router
}

func (r *Router) setupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	if r.deps.Metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.deps.Metrics.Handler()))
	}
	if r.deps.MCP != nil {
		r.engine.Any("/mcp", gin.WrapH(r.deps.MCP))
	}

	healthHandler := handlers.NewHealthHandler(r.deps.Broadcaster, r.deps.Registry, r.deps.Agent)
	streamHandler := handlers.NewStreamHandler(r.deps.Broadcaster, r.deps.Executor, r.deps.AllowedOrigin)

	r.engine.GET("/health", healthHandler.Health)
	r.engine.GET("/ws", streamHandler.WebSocket)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		catalogHandler := handlers.NewCatalogHandler(r.deps.Registry)
		v1.GET("/telemetry-types", catalogHandler.TelemetryTypes)
		v1.GET("/command-templates", catalogHandler.CommandTemplates)
		v1.GET("/command-templates/:name", catalogHandler.CommandTemplate)
		v1.GET("/configuration/summary", catalogHandler.Summary)

		registrationHandler := handlers.NewRegistrationHandler(r.deps.Registry)
		v1.PUT("/registry/:source", registrationHandler.Register)
		v1.DELETE("/registry/:source", registrationHandler.Unregister)

		historyHandler := handlers.NewHistoryHandler(r.deps.Broadcaster.History())
		v1.GET("/historical-data", historyHandler.Query)
		v1.DELETE("/historical-data", historyHandler.Clear)

		commandsHandler := handlers.NewCommandsHandler(r.deps.Executor)
		v1.POST("/commands", commandsHandler.Send)

		v1.GET("/events", streamHandler.Events)
		v1.GET("/connections", streamHandler.Connections)
	}
}

// Handler returns the engine as an http.Handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}
