// video.go — MCP schema for the video tool: transcript lookups and the
// §4.H/§4.I explain-session surface the LLM-facing client calls.
package schema

import "github.com/agentic-web/workspace/internal/mcp"

// VideoToolSchema returns the MCP tool definition for transcript and
// explain-session operations.
func VideoToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name: "video",
		Description: "Read captured video transcripts and ask questions about them via the " +
			"external LLM.\n\n" +
			"Actions: transcript (full_text and segment count for agent_id/video_id), " +
			"segments_in_range (start_s/end_s overlap query), explain (mode: summary or " +
			"explain — cached per session), ask (question — conversational, carries prior " +
			"turns for this agent_id/video_id pair).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{"transcript", "segments_in_range", "explain", "ask"},
				},
				"agent_id": map[string]any{
					"type": "string",
				},
				"video_id": map[string]any{
					"type": "string",
				},
				"mode": map[string]any{
					"type": "string",
					"enum": []string{"summary", "explain"},
				},
				"question": map[string]any{
					"type": "string",
				},
				"start_s": map[string]any{
					"type": "number",
				},
				"end_s": map[string]any{
					"type": "number",
				},
			},
			"required": []string{"action", "agent_id", "video_id"},
		},
	}
}
