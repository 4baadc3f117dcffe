// client.go — JSON-RPC 2.0 client for the workspace process's control
// plane, the same request/response shape as internal/mcp but spoken
// over HTTP instead of stdio.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// contentBlock mirrors internal/mcp.MCPContentBlock for decoding tool
// results client-side without importing the server package.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// Client speaks JSON-RPC tools/call requests to a workspace process's
// control-plane HTTP endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     int64
}

// NewClient builds a Client targeting the control plane on port.
func NewClient(port int) *Client {
	return &Client{
		endpoint:   fmt.Sprintf("http://127.0.0.1:%d/rpc", port),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CallTool sends a tools/call request and decodes its MCPToolResult.
func (c *Client) CallTool(tool string, arguments map[string]any) (*toolResult, error) {
	c.nextID++
	argsJSON, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}
	params := struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{Name: tool, Arguments: argsJSON}

	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: c.nextID, Method: "tools/call", Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("connect to workspace control plane at %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("server error [%d]: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result toolResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tool result: %w", err)
	}
	return &result, nil
}
