package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/telemetry-hub/pkg/api/types"
	"github.com/urmzd/telemetry-hub/pkg/command"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// maxCommandSize bounds command bodies.
const maxCommandSize = 64 << 10

// CommandsHandler dispatches commands received over HTTP
type CommandsHandler struct {
	executor *command.Executor
}

// NewCommandsHandler creates a new commands handler
func NewCommandsHandler(x *command.Executor) *CommandsHandler {
	return &CommandsHandler{executor: x}
}

// Send handles POST /commands
// @Summary      Send a command
// @Description  Validates a command against the registered templates, broadcasts it and runs its handler
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        request  body      types.CommandRequest  true  "Command"
// @Success      202      {object}  types.CommandAcceptedResponse
// @Failure      400      {object}  types.ErrorResponse  "Malformed or invalid command"
// @Router       /commands [post]
func (h *CommandsHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	cmd, err := h.executor.HandleIncoming(ctx, nil, raw)
	if err != nil {
		var vErr *registry.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "validation_error",
				Message: "Command validation failed: " + vErr.Reason,
			})
			return
		}
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	result := h.executor.Execute(ctx, cmd)
	c.JSON(http.StatusAccepted, types.CommandAcceptedResponse{
		Status:  "accepted",
		Command: cmd,
		Result:  result,
	})
}
