package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/telemetry-hub/pkg/api/types"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

// CatalogHandler serves the registered schema to discovery clients
type CatalogHandler struct {
	registry *registry.Registry
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(reg *registry.Registry) *CatalogHandler {
	return &CatalogHandler{registry: reg}
}

// TelemetryTypes handles GET /telemetry-types
// @Summary      List telemetry types
// @Description  Returns every registered telemetry type
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  registry.TypeCatalog
// @Router       /telemetry-types [get]
func (h *CatalogHandler) TelemetryTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.TelemetryTypes())
}

// CommandTemplates handles GET /command-templates
// @Summary      List command templates
// @Description  Returns every registered command template
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  registry.TemplateCatalog
// @Router       /command-templates [get]
func (h *CatalogHandler) CommandTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.CommandTemplates())
}

// CommandTemplate handles GET /command-templates/:name
// @Summary      Get command template
// @Description  Returns one command template by name
// @Tags         catalog
// @Produce      json
// @Param        name  path      string  true  "Command name"
// @Success      200   {object}  registry.CommandTemplate
// @Failure      404   {object}  types.ErrorResponse  "Template not found"
// @Router       /command-templates/{name} [get]
func (h *CatalogHandler) CommandTemplate(c *gin.Context) {
	name := c.Param("name")

	t, ok := h.registry.Template(name)
	if !ok {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: "Command template " + name + " not found",
		})
		return
	}
	c.JSON(http.StatusOK, t)
}

// Summary handles GET /configuration/summary
// @Summary      Configuration summary
// @Description  Returns counts, names and connection state of the registered schema
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  registry.Summary
// @Router       /configuration/summary [get]
func (h *CatalogHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Summary())
}
