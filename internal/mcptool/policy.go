package mcptool

import (
	"net/url"
	"strings"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// checkPolicy is the connection gate from : denies connection if a
// blocked-command substring appears in "command args…", or per the global
// policy mode (stdio_only / local_only / allowlist).
func checkPolicy(policy Policy, name string, server ServerConfig) error {
	commandText := strings.ToLower(server.Command)
	if len(server.Args) > 0 {
		commandText += " " + strings.ToLower(strings.Join(server.Args, " "))
	}
	for _, blocked := range policy.BlockedCommands {
		b := strings.TrimSpace(strings.ToLower(blocked))
		if b != "" && strings.Contains(commandText, b) {
			return coreconfig.Policy("blocked command pattern detected: %s", blocked)
		}
	}

	transport := strings.ToLower(server.Transport)
	if transport == "" {
		transport = TransportStdio
	}

	switch PolicyMode(strings.ToLower(string(policy.Mode))) {
	case PolicyAllowAll:
		return nil
	case PolicyStdioOnly:
		if transport != TransportStdio {
			return coreconfig.Policy("policy 'stdio_only' only allows stdio transport")
		}
		return nil
	case PolicyLocalOnly:
		if !isLocalServer(transport, server.URL) {
			return coreconfig.Policy("policy 'local_only' only allows local servers")
		}
		return nil
	case PolicyAllowlist:
		perm, ok := policy.ServerPermissions[name]
		if !ok || !perm.Allowed {
			return coreconfig.Policy("server '%s' not in allowlist", name)
		}
		if len(perm.TransportTypes) > 0 && !containsFold(perm.TransportTypes, transport) {
			return coreconfig.Policy("transport '%s' not allowed for '%s'", transport, name)
		}
		return nil
	default:
		return coreconfig.Policy("unknown MCP policy '%s'", policy.Mode)
	}
}

func isLocalServer(transport, rawURL string) bool {
	if transport == TransportStdio {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

// resolveToolName finds the longest server-name prefix such that
// t = "<server>_<rest>".
func resolveToolName(servers map[string]*serverConn, t string) (server, rest string, ok bool) {
	best := ""
	for name := range servers {
		prefix := name + "_"
		if strings.HasPrefix(t, prefix) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, strings.TrimPrefix(t, best+"_"), true
}
