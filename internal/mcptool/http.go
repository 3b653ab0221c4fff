package mcptool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpConn is the HTTP/SSE-transport half of a serverConn: raw JSON-RPC over
// streamable-http or sse, grounded on mcptoolset.connectHTTP/makeHTTPRequest.
type httpConn struct {
	url        string
	httpClient *http.Client
	sessionID  string
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func dialHTTP(ctx context.Context, cfg ServerConfig) (*httpConn, []ToolInfo, error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("url is required for %s transport", cfg.Transport)
	}

	conn := &httpConn{url: cfg.URL, httpClient: &http.Client{Timeout: 30 * time.Second}}

	initResp, err := conn.send(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "tepora-core", "version": "0.1.0"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing MCP session: %w", err)
	}
	if initResp.Error != nil {
		return nil, nil, fmt.Errorf("MCP init error: %s", initResp.Error.Message)
	}

	listResp, err := conn.send(ctx, "tools/list", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("listing tools: %w", err)
	}
	if listResp.Error != nil {
		return nil, nil, fmt.Errorf("MCP list error: %s", listResp.Error.Message)
	}

	resultMap, ok := listResp.Result.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected result type from tools/list")
	}
	rawTools, _ := resultMap["tools"].([]any)

	tools := make([]ToolInfo, 0, len(rawTools))
	for _, raw := range rawTools {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		desc, _ := m["description"].(string)
		schema, _ := m["inputSchema"].(map[string]any)
		tools = append(tools, ToolInfo{Name: name, Description: desc, Schema: schema})
	}

	return conn, tools, nil
}

func (c *httpConn) callTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	resp, err := c.send(ctx, "tools/call", map[string]any{"name": name, "arguments": args})
	if err != nil {
		return "", false, fmt.Errorf("calling tool %s: %w", name, err)
	}
	if resp.Error != nil {
		return resp.Error.Message, true, nil
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return "", false, nil
	}

	isError, _ := resultMap["isError"].(bool)
	content, _ := resultMap["content"].([]any)
	var texts []string
	for _, c := range content {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := cm["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	return joinNonEmpty(texts), isError, nil
}

func (c *httpConn) close() error {
	c.httpClient = nil
	return nil
}

func (c *httpConn) send(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if c.sessionID != "" {
		req.Header.Set("mcp-session-id", c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("mcp-session-id"); sid != "" {
		c.sessionID = sid
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(raw))
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResponse(resp.Body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var out jsonRPCResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &out, nil
}

// readSSEResponse reads the first complete JSON-RPC event from an SSE body.
func readSSEResponse(body io.Reader) (*jsonRPCResponse, error) {
	reader := bufio.NewReader(body)
	var data strings.Builder

	for {
		line, err := reader.ReadBytes('\n')
		trimmed := strings.TrimSpace(string(line))

		if strings.HasPrefix(trimmed, "data:") {
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, "data:")))
		} else if trimmed == "" && data.Len() > 0 {
			var out jsonRPCResponse
			if jerr := json.Unmarshal([]byte(data.String()), &out); jerr == nil {
				return &out, nil
			}
			data.Reset()
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	if data.Len() > 0 {
		var out jsonRPCResponse
		if err := json.Unmarshal([]byte(data.String()), &out); err == nil {
			return &out, nil
		}
	}
	return nil, fmt.Errorf("SSE stream ended without a complete message")
}
