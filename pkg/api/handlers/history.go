package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/telemetry-hub/pkg/api/types"
	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/history"
)

// DefaultHistoryLimit is applied when a query gives no limit.
const DefaultHistoryLimit = 1000

// HistoryHandler serves the bounded event log
type HistoryHandler struct {
	log *history.Log
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(l *history.Log) *HistoryHandler {
	return &HistoryHandler{log: l}
}

// Query handles GET /historical-data
// @Summary      Query event history
// @Description  Returns recent events filtered by type, id and time range, oldest first
// @Tags         history
// @Produce      json
// @Param        limit  query     int     false  "Keep only the most recent matches (default 1000)"
// @Param        type   query     string  false  "Event type (data, command, command_result, device_message)"
// @Param        id     query     string  false  "Event id"
// @Param        since  query     string  false  "ISO-8601 lower bound, exclusive"
// @Param        until  query     string  false  "ISO-8601 upper bound, exclusive"
// @Success      200    {object}  types.HistoryResponse
// @Failure      400    {object}  types.ErrorResponse  "Invalid query"
// @Router       /historical-data [get]
func (h *HistoryHandler) Query(c *gin.Context) {
	filter := history.Filter{
		Kind:  event.Kind(c.Query("type")),
		ID:    c.Query("id"),
		Limit: DefaultHistoryLimit,
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "unknown event type " + strconv.Quote(string(filter.Kind)),
		})
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
			return
		}
		filter.Limit = limit
	}

	var err error
	if filter.From, err = history.ParseTimestamp(firstQuery(c, "since", "from_timestamp")); err != nil {
		invalidTimestamp(c, err)
		return
	}
	if filter.To, err = history.ParseTimestamp(firstQuery(c, "until", "to_timestamp")); err != nil {
		invalidTimestamp(c, err)
		return
	}

	result := h.log.Query(filter)
	c.JSON(http.StatusOK, types.HistoryResponse{
		Data:            result.Events,
		TotalRecords:    result.Total,
		FilteredRecords: result.Filtered,
	})
}

// Clear handles DELETE /historical-data
// @Summary      Clear event history
// @Description  Empties the event log and reports how many events were removed
// @Tags         history
// @Produce      json
// @Success      200  {object}  types.ClearHistoryResponse
// @Router       /historical-data [delete]
func (h *HistoryHandler) Clear(c *gin.Context) {
	c.JSON(http.StatusOK, types.ClearHistoryResponse{Cleared: h.log.Clear()})
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}

func invalidTimestamp(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}
