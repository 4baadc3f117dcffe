// schema.go — MCP tool schema assembler.
// Pure data — returns MCPTool structs with zero runtime dependencies,
// mirroring the teacher's one-consolidated-tool-per-subsystem pattern
// (configure/observe/interact/...) rather than one tool per operation.
package schema

import "github.com/agentic-web/workspace/internal/mcp"

// AllTools returns all MCP tool definitions this core exposes.
func AllTools() []mcp.MCPTool {
	return []mcp.MCPTool{
		AgentToolSchema(),
		RulesToolSchema(),
		AuditToolSchema(),
		VideoToolSchema(),
	}
}
