package types

import (
	"time"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// --- Request DTOs ---

// CommandRequest is the request body for POST /commands
type CommandRequest struct {
	Command    string                 `json:"command" example:"set_update_interval"`
	Parameters map[string]event.Value `json:"parameters" swaggertype:"object"`
}

// RegistrationRequest is the request body for PUT /registry/{source}
type RegistrationRequest struct {
	TelemetryTypes   map[string]any `json:"telemetry_types"`
	CommandTemplates map[string]any `json:"command_templates"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	Agent           string    `json:"agent"`
	Connections     int       `json:"connections"`
	DeviceConnected bool      `json:"device_connected"`
	Timestamp       time.Time `json:"timestamp"`
}

// CommandAcceptedResponse is returned from POST /commands
type CommandAcceptedResponse struct {
	Status  string         `json:"status"`
	Command *event.Command `json:"command" swaggertype:"object"`
	Result  *event.Result  `json:"result,omitempty"`
}

// ClearHistoryResponse is returned from DELETE /historical-data
type ClearHistoryResponse struct {
	Cleared int `json:"cleared"`
}

// HistoryResponse is returned from GET /historical-data
type HistoryResponse struct {
	Data            []event.Event `json:"data" swaggertype:"array,object"`
	TotalRecords    int           `json:"total_records"`
	FilteredRecords int           `json:"filtered_records"`
}

// ConnectionsResponse is returned from GET /connections
type ConnectionsResponse struct {
	Count     int      `json:"count"`
	Observers []string `json:"observers"`
}

// RegistrationResponse is returned from PUT /registry/{source}
type RegistrationResponse struct {
	Source                string    `json:"source"`
	TelemetryTypesCount   int       `json:"telemetry_types_count"`
	CommandTemplatesCount int       `json:"command_templates_count"`
	LastUpdated           time.Time `json:"last_updated"`
}

// UnregisterResponse is returned from DELETE /registry/{source}
type UnregisterResponse struct {
	Source       string `json:"source"`
	Unregistered bool   `json:"unregistered"`
}
