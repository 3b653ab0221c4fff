// Package mcptool connects to external Model-Context-Protocol tool servers
// over stdio subprocess or HTTP/SSE transport and exposes their tools to the
// native tool registry under the prefix "<server>_<tool>".
package mcptool

import "time"

// Transport names accepted in ServerConfig.Transport.
const (
	TransportStdio         = "stdio"
	TransportStreamableHTTP = "streamable_http"
	TransportSSE            = "sse"
)

// ServerConfig describes one configured MCP server.
type ServerConfig struct {
	Command  string            `json:"command" yaml:"command"`
	Args     []string          `json:"args" yaml:"args"`
	Env      map[string]string `json:"env" yaml:"env"`
	Enabled  bool              `json:"enabled" yaml:"enabled"`
	Transport string           `json:"transport" yaml:"transport"`
	URL      string            `json:"url,omitempty" yaml:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ToolsConfig is the full server_name -> config map.
type ToolsConfig struct {
	Servers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ConnState is a server connection's lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateError        ConnState = "error"
)

// Status is the observable per-server connection status.
type Status struct {
	State         ConnState `json:"status"`
	ToolCount     int       `json:"tools_count"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	LastConnected time.Time `json:"last_connected,omitempty"`
}

// PolicyMode selects the global connection gate applied to every server.
type PolicyMode string

const (
	PolicyAllowAll   PolicyMode = "allow_all"
	PolicyStdioOnly  PolicyMode = "stdio_only"
	PolicyLocalOnly  PolicyMode = "local_only"
	PolicyAllowlist  PolicyMode = "allowlist"
)

// ServerPermission is one allowlist entry.
type ServerPermission struct {
	Allowed        bool     `json:"allowed" yaml:"allowed"`
	TransportTypes []string `json:"transport_types,omitempty" yaml:"transport_types,omitempty"`
}

// Policy is the global MCP connection policy.
type Policy struct {
	Mode               PolicyMode                  `json:"policy" yaml:"policy"`
	ServerPermissions  map[string]ServerPermission `json:"server_permissions" yaml:"server_permissions"`
	BlockedCommands    []string                    `json:"blocked_commands" yaml:"blocked_commands"`
}

// DefaultPolicy matches the conservative default: local connections only,
// plus a small blocklist of destructive command substrings.
func DefaultPolicy() Policy {
	return Policy{
		Mode:              PolicyLocalOnly,
		ServerPermissions: map[string]ServerPermission{},
		BlockedCommands:   []string{"sudo", "rm -rf", "format", "del /f", "shutdown"},
	}
}

// ToolInfo is a discovered MCP tool, named under its server prefix.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}
