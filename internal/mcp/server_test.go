package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTools() []MCPTool {
	return []MCPTool{
		{
			Name: "agent",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{"type": "string"},
					"slot":   map[string]any{"type": "integer"},
				},
			},
		},
	}
}

func TestServer_FindTool(t *testing.T) {
	s := NewServer("test", "1.0.0", testTools(), NewDispatcher(Deps{}))
	require.NotNil(t, s.findTool("agent"))
	assert.Nil(t, s.findTool("nonexistent"))
}

func TestServer_HandleToolsCall_SchemaWarningSurfacesAlongsideResult(t *testing.T) {
	deps := newTestDeps(t)
	s := NewServer("test", "1.0.0", testTools(), NewDispatcher(deps))

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      float64(1),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"agent","arguments":{"action":"create","slot":0,"sloot":1}}`),
	}
	resp := s.HandleRequest(context.Background(), req)
	require.Nil(t, resp.Error)

	var result MCPToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.False(t, result.IsError)

	var warningTexts []string
	for _, block := range result.Content {
		warningTexts = append(warningTexts, block.Text)
	}
	found := false
	for _, text := range warningTexts {
		if len(text) > 0 && text[0] == '_' {
			found = true
		}
	}
	assert.True(t, found, "expected a _warnings content block for the unknown 'sloot' param; got %v", warningTexts)
}

func TestServer_HandleToolsCall_UnknownToolNoSchemaLookup(t *testing.T) {
	deps := newTestDeps(t)
	s := NewServer("test", "1.0.0", testTools(), NewDispatcher(deps))

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      float64(1),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"nonexistent","arguments":{}}`),
	}
	resp := s.HandleRequest(context.Background(), req)
	require.Nil(t, resp.Error)

	var result MCPToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.True(t, result.IsError)
}
