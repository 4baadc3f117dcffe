// rules.go — MCP schema for the rules tool: the filter-list engine
// surface of §4.A/§4.B/§4.C exposed as a single multi-action tool.
package schema

import "github.com/agentic-web/workspace/internal/mcp"

// RulesToolSchema returns the MCP tool definition for the rule engine
// and network interceptor's configuration surface.
func RulesToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name: "rules",
		Description: "Inspect and configure the ad-blocking rule engine and network interceptor.\n\n" +
			"Actions: stats (checked/blocked/allowed counters and average match time), " +
			"stats_reset, reload (re-parse configured filter-list files and swap the engine's " +
			"rule set atomically), set_mode (intercept mode: off, strict, balanced, allowlist), " +
			"set_allowlist (replace the host allowlist consulted before the rule engine).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{"stats", "stats_reset", "reload", "set_mode", "set_allowlist"},
				},
				"mode": map[string]any{
					"type": "string",
					"enum": []string{"off", "strict", "balanced", "allowlist"},
				},
				"hosts": map[string]any{
					"type":        "array",
					"description": "set_allowlist action: host globs, e.g. \"*.example.com\"",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required": []string{"action"},
		},
	}
}
