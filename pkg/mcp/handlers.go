package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/urmzd/telemetry-hub/pkg/event"
	"github.com/urmzd/telemetry-hub/pkg/history"
	"github.com/urmzd/telemetry-hub/pkg/registry"
)

const defaultHistoryLimit = 100

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent := "disabled"
	if s.agent != nil {
		agent = "stopped"
		if s.agent.Running() {
			agent = "running"
		}
	}

	out := GetHealthOutput{
		Status:          "healthy",
		Agent:           agent,
		Connections:     s.broadcaster.ConnectionCount(),
		DeviceConnected: s.registry.Connected(),
		HistorySize:     s.broadcaster.History().Len(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetConfigurationSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.registry.Summary())), nil
}

func (s *Server) handleListTelemetryTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.registry.TelemetryTypes())), nil
}

func (s *Server) handleListCommandTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.registry.CommandTemplates())), nil
}

func (s *Server) handleGetCommandTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requiredString(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, ok := s.registry.Template(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("command template %q not found", name)), nil
	}
	return mcp.NewToolResultText(formatJSON(t)), nil
}

func (s *Server) handleQueryHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := history.Filter{
		Kind:  event.Kind(optionalString(request, "type")),
		ID:    optionalString(request, "id"),
		Limit: defaultHistoryLimit,
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown event type %q", filter.Kind)), nil
	}

	if v, ok := request.GetArguments()["limit"]; ok && v != nil {
		n, ok := v.(float64)
		if !ok || n < 1 {
			return mcp.NewToolResultError("limit must be a positive number"), nil
		}
		filter.Limit = int(n)
	}

	var err error
	if filter.From, err = history.ParseTimestamp(optionalString(request, "since")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if filter.To, err = history.ParseTimestamp(optionalString(request, "until")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.broadcaster.History().Query(filter)
	out := QueryHistoryOutput{
		Data:            result.Events,
		TotalRecords:    result.Total,
		FilteredRecords: result.Filtered,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSendCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requiredString(request, "command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params, _ := request.GetArguments()["parameters"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(map[string]any{"command": name, "parameters": params})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %s", err)), nil
	}

	cmd, err := s.executor.HandleIncoming(ctx, nil, raw)
	if err != nil {
		var vErr *registry.ValidationError
		if errors.As(err, &vErr) {
			return mcp.NewToolResultError("Command validation failed: " + vErr.Reason), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.executor.Execute(ctx, cmd)
	out := SendCommandOutput{
		Accepted: true,
		Message:  fmt.Sprintf("Command %s dispatched", cmd.Name),
		Result:   result,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func optionalString(request mcp.CallToolRequest, key string) string {
	s, _ := request.GetArguments()[key].(string)
	return s
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
