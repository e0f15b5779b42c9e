// Package docs holds the Swagger document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the hub status, producer state and observer count",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/telemetry-types": {
            "get": {
                "description": "Returns every registered telemetry type",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "List telemetry types",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/command-templates": {
            "get": {
                "description": "Returns every registered command template",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "List command templates",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/command-templates/{name}": {
            "get": {
                "description": "Returns one command template by name",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Get command template",
                "parameters": [
                    {"type": "string", "description": "Command name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Template not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/configuration/summary": {
            "get": {
                "description": "Returns counts, names and connection state of the registered schema",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Configuration summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/registry/{source}": {
            "put": {
                "description": "Replaces the registered telemetry types and command templates with the given document",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["registry"],
                "summary": "Register a producer schema",
                "parameters": [
                    {"type": "string", "description": "Producer name", "name": "source", "in": "path", "required": true},
                    {"description": "Schema document", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.RegistrationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RegistrationResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Schema error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Clears the registry if it is owned by the given source",
                "produces": ["application/json"],
                "tags": ["registry"],
                "summary": "Unregister a producer schema",
                "parameters": [
                    {"type": "string", "description": "Producer name", "name": "source", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.UnregisterResponse"}},
                    "404": {"description": "Source does not own the registry", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/historical-data": {
            "get": {
                "description": "Returns recent events filtered by type, id and time range, oldest first",
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Query event history",
                "parameters": [
                    {"type": "integer", "description": "Keep only the most recent matches (default 1000)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Event type", "name": "type", "in": "query"},
                    {"type": "string", "description": "Event id", "name": "id", "in": "query"},
                    {"type": "string", "description": "ISO-8601 lower bound, exclusive", "name": "since", "in": "query"},
                    {"type": "string", "description": "ISO-8601 upper bound, exclusive", "name": "until", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Empties the event log and reports how many events were removed",
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Clear event history",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ClearHistoryResponse"}}
                }
            }
        },
        "/commands": {
            "post": {
                "description": "Validates a command against the registered templates, broadcasts it and runs its handler",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["commands"],
                "summary": "Send a command",
                "parameters": [
                    {"description": "Command", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CommandRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.CommandAcceptedResponse"}},
                    "400": {"description": "Malformed or invalid command", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "description": "Server-Sent Events stream of every broadcast event",
                "produces": ["text/event-stream"],
                "tags": ["stream"],
                "summary": "Subscribe to broadcast events",
                "responses": {
                    "200": {"description": "SSE event stream", "schema": {"type": "string"}}
                }
            }
        },
        "/connections": {
            "get": {
                "description": "Returns the ids of every connected observer",
                "produces": ["application/json"],
                "tags": ["stream"],
                "summary": "List observers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ConnectionsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "agent": {"type": "string"},
                "connections": {"type": "integer"},
                "device_connected": {"type": "boolean"},
                "timestamp": {"type": "string"}
            }
        },
        "types.CommandRequest": {
            "type": "object",
            "properties": {
                "command": {"type": "string", "example": "set_update_interval"},
                "parameters": {"type": "object"}
            }
        },
        "types.CommandAcceptedResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "command": {"type": "object"},
                "result": {"type": "object"}
            }
        },
        "types.RegistrationRequest": {
            "type": "object",
            "properties": {
                "telemetry_types": {"type": "object"},
                "command_templates": {"type": "object"}
            }
        },
        "types.RegistrationResponse": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "telemetry_types_count": {"type": "integer"},
                "command_templates_count": {"type": "integer"},
                "last_updated": {"type": "string"}
            }
        },
        "types.UnregisterResponse": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "unregistered": {"type": "boolean"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"type": "object"}},
                "total_records": {"type": "integer"},
                "filtered_records": {"type": "integer"}
            }
        },
        "types.ClearHistoryResponse": {
            "type": "object",
            "properties": {
                "cleared": {"type": "integer"}
            }
        },
        "types.ConnectionsResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "observers": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Telemetry Hub API",
	Description:      "Real-time telemetry distribution and command interface",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
