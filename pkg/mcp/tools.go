package mcp

import "github.com/mark3labs/mcp-go/mcp"

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the hub status, producer state and number of connected observers"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_configuration_summary",
			mcp.WithDescription("Summarise the registered schema: source, counts, telemetry names and available commands"),
		),
		s.handleGetConfigurationSummary,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_telemetry_types",
			mcp.WithDescription("List every registered telemetry type with unit, data type, range and allowed values"),
		),
		s.handleListTelemetryTypes,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_command_templates",
			mcp.WithDescription("List every registered command template and its parameters"),
		),
		s.handleListCommandTemplates,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_command_template",
			mcp.WithDescription("Get one command template by name"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Command name (e.g. set_update_interval)"),
			),
		),
		s.handleGetCommandTemplate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("query_history",
			mcp.WithDescription("Query recent events from the in-memory history, oldest first"),
			mcp.WithString("type",
				mcp.Description("Event type: data, command, command_result or device_message"),
			),
			mcp.WithString("id",
				mcp.Description("Event id (e.g. temperature)"),
			),
			mcp.WithString("since",
				mcp.Description("ISO-8601 lower bound, exclusive"),
			),
			mcp.WithString("until",
				mcp.Description("ISO-8601 upper bound, exclusive"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Keep only the most recent matches (default 100)"),
			),
		),
		s.handleQueryHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("send_command",
			mcp.WithDescription("Validate a command against its template, broadcast it and run its handler"),
			mcp.WithString("command",
				mcp.Required(),
				mcp.Description("Command name"),
			),
			mcp.WithObject("parameters",
				mcp.Description("Command parameters (e.g. {\"interval\": 1.5})"),
			),
		),
		s.handleSendCommand,
	)
}
