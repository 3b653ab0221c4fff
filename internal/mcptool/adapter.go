package mcptool

import (
	"context"

	coretool "github.com/coco4atJP/tepora-alpha-sub000/internal/tool"
)

// gatewayTool adapts one MCP tool exposed by a Gateway to coretool.CallableTool
// so it can sit in the same registry as the native tools.
type gatewayTool struct {
	gw   *Gateway
	info ToolInfo
}

// Tools returns every currently connected MCP tool as a coretool.CallableTool.
func (g *Gateway) Tools() []coretool.CallableTool {
	infos := g.ListTools()
	out := make([]coretool.CallableTool, 0, len(infos))
	for _, info := range infos {
		out = append(out, &gatewayTool{gw: g, info: info})
	}
	return out
}

func (t *gatewayTool) Name() string        { return t.info.Name }
func (t *gatewayTool) Description() string { return t.info.Description }
func (t *gatewayTool) Schema() map[string]any {
	if t.info.Schema != nil {
		return t.info.Schema
	}
	return map[string]any{"type": "object"}
}

func (t *gatewayTool) Call(ctx context.Context, args map[string]any) (coretool.Result, error) {
	text, err := t.gw.ExecuteTool(ctx, t.info.Name, args)
	if err != nil {
		return coretool.Result{}, err
	}
	return coretool.Result{Output: text}, nil
}
