// agent.go — MCP schema for the agent tool: the scheduler/registry
// surface of §4.J/§4.K exposed as a single multi-action tool, in the
// teacher's configure/interact style.
package schema

import "github.com/agentic-web/workspace/internal/mcp"

// AgentToolSchema returns the MCP tool definition for agent lifecycle
// and layout operations.
func AgentToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name: "agent",
		Description: "Create, navigate, and destroy browsing-workspace agents (independently " +
			"navigating browser sessions hosted in a grid slot).\n\n" +
			"Actions: create (slot), navigate (agent_id, url), navigate_next (url — round-robin " +
			"placement), destroy (agent_id), set_bounds (agent_id, bounds), set_fullscreen " +
			"(agent_id, fullscreen), reconcile_layout (recompute every live agent's bounds), " +
			"list (live agents and their slots/status).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{
						"create", "navigate", "navigate_next", "destroy",
						"set_bounds", "set_fullscreen", "reconcile_layout", "list",
					},
				},
				"agent_id": map[string]any{
					"type":        "string",
					"description": "Target agent id, required by all actions except create/navigate_next/reconcile_layout/list",
				},
				"slot": map[string]any{
					"type":        "integer",
					"description": "Slot index to create in (create action)",
				},
				"url": map[string]any{
					"type":        "string",
					"description": "Navigation target; a scheme-less input is normalized to https://",
				},
				"bounds": map[string]any{
					"type":        "object",
					"description": "{x,y,w,h} in window-local pixels (set_bounds action)",
					"properties": map[string]any{
						"x": map[string]any{"type": "integer"},
						"y": map[string]any{"type": "integer"},
						"w": map[string]any{"type": "integer"},
						"h": map[string]any{"type": "integer"},
					},
				},
				"fullscreen": map[string]any{
					"type":        "boolean",
					"description": "set_fullscreen action: enter (true) or exit (false) fullscreen",
				},
			},
			"required": []string{"action"},
		},
	}
}
