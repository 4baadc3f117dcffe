// audit.go — MCP schema for the audit tool: queries over the §4.C
// audit buffer, supplemented with agent/host/action/time-range filters
// (SPEC_FULL's audit-query-filters supplement).
package schema

import "github.com/agentic-web/workspace/internal/mcp"

// AuditToolSchema returns the MCP tool definition for querying blocked
// requests.
func AuditToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name: "audit",
		Description: "Query the blocked-request audit log.\n\n" +
			"Filters (all optional): agent_id, host, action (block/allow), resource_type, " +
			"since (RFC3339 timestamp), limit (default 100, most-recent first).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent_id": map[string]any{
					"type": "string",
				},
				"host": map[string]any{
					"type": "string",
				},
				"action": map[string]any{
					"type": "string",
					"enum": []string{"block", "allow"},
				},
				"resource_type": map[string]any{
					"type": "string",
					"enum": []string{
						"script", "image", "stylesheet", "xhr", "fetch", "websocket",
						"media", "document", "subdocument", "font", "ping", "other",
					},
				},
				"since": map[string]any{
					"type":        "string",
					"description": "RFC3339 timestamp lower bound",
				},
				"limit": map[string]any{
					"type": "integer",
				},
			},
		},
	}
}
