// server.go — top-level JSON-RPC 2.0 request handling: initialize,
// tools/list, tools/call. Mirrors the teacher's MCPHandler.HandleRequest
// switch but routes tools/call through Dispatcher instead of a
// per-tool method table.
package mcp

import (
	"context"
	"encoding/json"
)

const protocolVersion = "2024-11-05"

// Server answers JSON-RPC requests for this core's MCP tool surface.
type Server struct {
	Name       string
	Version    string
	Tools      []MCPTool
	Dispatcher *Dispatcher
}

// NewServer builds a Server exposing tools and routing tools/call through
// dispatcher.
func NewServer(name, version string, tools []MCPTool, dispatcher *Dispatcher) *Server {
	return &Server{Name: name, Version: version, Tools: tools, Dispatcher: dispatcher}
}

// HandleRequest dispatches one JSON-RPC request to the matching handler.
func (s *Server) HandleRequest(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: -32601, Message: "Method not found: " + req.Method},
		}
	}
}

func (s *Server) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := MCPInitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      MCPServerInfo{Name: s.Name, Version: s.Version},
		Capabilities:    MCPCapabilities{Tools: MCPToolsCapability{}},
	}
	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: SafeMarshal(result, `{}`)}
}

func (s *Server) handleToolsList(req JSONRPCRequest) JSONRPCResponse {
	result := MCPToolsListResult{Tools: s.Tools}
	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: SafeMarshal(result, `{"tools":[]}`)}
}

func (s *Server) handleToolsCall(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: -32602, Message: "Invalid params: " + err.Error()},
		}
	}
	result := s.Dispatcher.Dispatch(ctx, params.Name, params.Arguments)
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	if tool := s.findTool(params.Name); tool != nil {
		warnings := ValidateParamsAgainstSchema(params.Arguments, tool.InputSchema)
		resp = AppendWarningsToResponse(resp, warnings)
	}
	return resp
}

// findTool returns the tool named name from s.Tools, or nil if unknown.
func (s *Server) findTool(name string) *MCPTool {
	for i := range s.Tools {
		if s.Tools[i].Name == name {
			return &s.Tools[i]
		}
	}
	return nil
}
