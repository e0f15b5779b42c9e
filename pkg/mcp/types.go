package mcp

import (
	"github.com/urmzd/telemetry-hub/pkg/event"
)

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status          string `json:"status" jsonschema:"description=Overall health status"`
	Agent           string `json:"agent" jsonschema:"description=Producer state (running, stopped or disabled)"`
	Connections     int    `json:"connections" jsonschema:"description=Connected observers"`
	DeviceConnected bool   `json:"device_connected" jsonschema:"description=Whether a producer has registered its schema"`
	HistorySize     int    `json:"history_size" jsonschema:"description=Events held in history"`
	Timestamp       string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// QueryHistoryOutput is the output for the query_history tool
type QueryHistoryOutput struct {
	Data            []event.Event `json:"data" jsonschema:"description=Matching events, oldest first"`
	TotalRecords    int           `json:"total_records" jsonschema:"description=Events held in history"`
	FilteredRecords int           `json:"filtered_records" jsonschema:"description=Events returned"`
}

// SendCommandOutput is the output for the send_command tool
type SendCommandOutput struct {
	Accepted bool          `json:"accepted" jsonschema:"description=Whether the command passed validation"`
	Message  string        `json:"message" jsonschema:"description=Status message"`
	Result   *event.Result `json:"result,omitempty" jsonschema:"description=Immediate result, absent when the command answers asynchronously"`
}
