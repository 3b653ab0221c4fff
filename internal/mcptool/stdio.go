package mcptool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// stdioConn is the stdio-transport half of a serverConn, backed by mcp-go's
// subprocess client (grounded on mcptoolset.connectStdio).
type stdioConn struct {
	client *client.Client
}

func convertEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func dialStdio(ctx context.Context, cfg ServerConfig) (*stdioConn, []ToolInfo, error) {
	command := cfg.Command
	if command == "" {
		return nil, nil, fmt.Errorf("command is required for stdio transport")
	}

	mcpClient, err := client.NewStdioMCPClient(command, convertEnv(cfg.Env), cfg.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating stdio client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting stdio client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "tepora-core", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("initializing MCP session: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("listing tools: %w", err)
	}

	tools := make([]ToolInfo, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		tools = append(tools, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			Schema:      convertSchema(t.InputSchema),
		})
	}

	return &stdioConn{client: mcpClient}, tools, nil
}

func (c *stdioConn) callTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.client.CallTool(ctx, req)
	if err != nil {
		return "", false, fmt.Errorf("calling tool %s: %w", name, err)
	}

	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return joinNonEmpty(texts), resp.IsError, nil
}

func (c *stdioConn) close() error {
	return c.client.Close()
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	raw, err := jsonMarshalThenUnmarshal(schema)
	if err != nil {
		return nil
	}
	return raw
}
