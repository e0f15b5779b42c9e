package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/telemetry-hub/pkg/api/types"
	"github.com/urmzd/telemetry-hub/pkg/broadcast"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// AgentState reports whether the in-process producer is running.
type AgentState interface {
	Running() bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	broadcaster *broadcast.Broadcaster
	registry    *registry.Registry
	agent       AgentState
}

// NewHealthHandler creates a new health handler. agent may be nil when the
// hub runs without a built-in producer.
func NewHealthHandler(b *broadcast.Broadcaster, reg *registry.Registry, agent AgentState) *HealthHandler {
	return &HealthHandler{broadcaster: b, registry: reg, agent: agent}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the hub status, producer state and observer count
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	agent := "disabled"
	if h.agent != nil {
		agent = "stopped"
		if h.agent.Running() {
			agent = "running"
		}
	}

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:          "healthy",
		Message:         "Telemetry hub is running",
		Agent:           agent,
		Connections:     h.broadcaster.ConnectionCount(),
		DeviceConnected: h.registry.Connected(),
		Timestamp:       time.Now(),
	})
}
