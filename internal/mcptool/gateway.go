package mcptool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

type transportConn interface {
	callTool(ctx context.Context, name string, args map[string]any) (text string, isError bool, err error)
	close() error
}

// serverConn is one connected (or failed) MCP server.
type serverConn struct {
	name  string
	conn  transportConn
	tools []ToolInfo
}

// Gateway owns the live set of MCP server connections and routes tool calls
// to them by name.
type Gateway struct {
	mu      sync.RWMutex
	servers map[string]*serverConn
	status  map[string]Status
}

// NewGateway constructs an empty gateway; call Reload to connect servers.
func NewGateway() *Gateway {
	return &Gateway{
		servers: map[string]*serverConn{},
		status:  map[string]Status{},
	}
}

// Reload computes the new target set from cfg, policy-gates each server, and
// spawns connections concurrently. Transitions are atomic: the old server
// map and status snapshot are only replaced once every server in this reload
// cycle has resolved, so no half-initialized server is ever exposed.
func (g *Gateway) Reload(ctx context.Context, cfg ToolsConfig, policy Policy) error {
	type outcome struct {
		name   string
		conn   *serverConn
		status Status
	}

	results := make(chan outcome, len(cfg.Servers))
	var wg sync.WaitGroup

	for name, server := range cfg.Servers {
		name, server := name, server
		if !server.Enabled {
			results <- outcome{name: name, status: Status{State: StateDisconnected}}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, status := g.connectServer(ctx, name, server, policy)
			results <- outcome{name: name, conn: conn, status: status}
		}()
	}

	wg.Wait()
	close(results)

	newServers := make(map[string]*serverConn, len(cfg.Servers))
	newStatus := make(map[string]Status, len(cfg.Servers))
	for r := range results {
		newStatus[r.name] = r.status
		if r.conn != nil {
			newServers[r.name] = r.conn
		}
	}

	g.mu.Lock()
	old := g.servers
	g.servers = newServers
	g.status = newStatus
	g.mu.Unlock()

	for _, s := range old {
		_ = s.conn.close()
	}
	return nil
}

func (g *Gateway) connectServer(ctx context.Context, name string, server ServerConfig, policy Policy) (*serverConn, Status) {
	if err := checkPolicy(policy, name, server); err != nil {
		return nil, Status{State: StateError, ErrorMessage: err.Error()}
	}

	transport := strings.ToLower(server.Transport)
	if transport == "" {
		transport = TransportStdio
	}

	var (
		conn  transportConn
		tools []ToolInfo
		err   error
	)
	switch transport {
	case TransportStdio:
		conn, tools, err = dialStdio(ctx, server)
	case TransportStreamableHTTP, TransportSSE, "http":
		conn, tools, err = dialHTTP(ctx, server)
	default:
		err = fmt.Errorf("unsupported MCP transport '%s'", server.Transport)
	}
	if err != nil {
		return nil, Status{State: StateError, ErrorMessage: err.Error()}
	}

	return &serverConn{name: name, conn: conn, tools: tools},
		Status{State: StateConnected, ToolCount: len(tools), LastConnected: nowFunc()}
}

// nowFunc is indirected so tests can pin a value; production uses time.Now.
var nowFunc = time.Now

// StatusSnapshot returns a copy of the current per-server status map.
func (g *Gateway) StatusSnapshot() map[string]Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]Status, len(g.status))
	for k, v := range g.status {
		out[k] = v
	}
	return out
}

// ListTools returns every tool across every connected server, named under
// its "<server>_<tool>" prefix and sorted by name.
func (g *Gateway) ListTools() []ToolInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []ToolInfo
	for name, sc := range g.servers {
		for _, t := range sc.tools {
			out = append(out, ToolInfo{
				Name:        name + "_" + t.Name,
				Description: t.Description,
				Schema:      t.Schema,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ExecuteTool resolves t (or, after alias canonicalization, a bare mcp tool
// name) to its server via the longest-prefix rule, then calls the remaining
// name on that server's connection. An is_error result is prefixed with
// "Tool error:".
func (g *Gateway) ExecuteTool(ctx context.Context, t string, args map[string]any) (string, error) {
	g.mu.RLock()
	server, rest, ok := resolveToolName(g.servers, t)
	var sc *serverConn
	if ok {
		sc = g.servers[server]
	}
	g.mu.RUnlock()

	if !ok || sc == nil {
		return "", coreconfig.NotFound("unknown MCP tool: %s", t)
	}

	text, isError, err := sc.conn.callTool(ctx, rest, args)
	if err != nil {
		return "", coreconfig.Upstream(err, "MCP tool call failed")
	}
	if isError {
		return "Tool error: " + text, nil
	}
	return text, nil
}

// Close tears down every connected server.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sc := range g.servers {
		_ = sc.conn.close()
	}
	g.servers = map[string]*serverConn{}
	g.status = map[string]Status{}
	return nil
}
