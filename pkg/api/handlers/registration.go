package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/telemetry-hub/pkg/api/types"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// maxDocumentSize bounds registration bodies.
const maxDocumentSize = 1 << 20

// RegistrationHandler lets an external producer own the registry
type RegistrationHandler struct {
	registry *registry.Registry
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(reg *registry.Registry) *RegistrationHandler {
	return &RegistrationHandler{registry: reg}
}

// Register handles PUT /registry/:source
// @Summary      Register a producer schema
// @Description  Replaces the registered telemetry types and command templates with the given document
// @Tags         registry
// @Accept       json
// @Produce      json
// @Param        source   path      string                       true  "Producer name"
// @Param        request  body      types.RegistrationRequest    true  "Schema document"
// @Success      200      {object}  types.RegistrationResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      422      {object}  types.ErrorResponse  "Schema error"
// @Router       /registry/{source} [put]
func (h *RegistrationHandler) Register(c *gin.Context) {
	source := c.Param("source")

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentSize))
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.registry.RegisterDocument(raw, source); err != nil {
		var schemaErr *registry.SchemaError
		if errors.As(err, &schemaErr) {
			c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{
				Error:   "schema_error",
				Message: schemaErr.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	summary := h.registry.Summary()
	c.JSON(http.StatusOK, types.RegistrationResponse{
		Source:                summary.Source,
		TelemetryTypesCount:   summary.TelemetryTypesCount,
		CommandTemplatesCount: summary.CommandTemplatesCount,
		LastUpdated:           summary.LastUpdated,
	})
}

// Unregister handles DELETE /registry/:source
// @Summary      Unregister a producer schema
// @Description  Clears the registry if it is owned by the given source
// @Tags         registry
// @Produce      json
// @Param        source  path      string  true  "Producer name"
// @Success      200     {object}  types.UnregisterResponse
// @Failure      404     {object}  types.ErrorResponse  "Source does not own the registry"
// @Router       /registry/{source} [delete]
func (h *RegistrationHandler) Unregister(c *gin.Context) {
	source := c.Param("source")

	if !h.registry.Release(source) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: "No configuration registered by " + source,
		})
		return
	}

	c.JSON(http.StatusOK, types.UnregisterResponse{Source: source, Unregistered: true})
}
