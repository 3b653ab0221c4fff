// Package session implements the bidirectional websocket channel between a
// client and the core: a typed JSON frame protocol, an origin/token
// handshake, and a UUID-keyed tool-confirmation round trip.
package session

// Incoming frame type discriminators. The zero value (empty string) marks a
// plain user turn, which carries no "type" field on the wire.
const (
	TypeStop                     = "stop"
	TypeGetStats                 = "get_stats"
	TypeSetSession                = "set_session"
	TypeToolConfirmationResponse = "tool_confirmation_response"
)

// Outgoing frame type discriminators.
const (
	TypeHistory                = "history"
	TypeSessionChanged         = "session_changed"
	TypeChunk                  = "chunk"
	TypeDone                   = "done"
	TypeError                  = "error"
	TypeStats                  = "stats"
	TypeActivity               = "activity"
	TypeSearchResults          = "search_results"
	TypeToolConfirmationRequest = "tool_confirmation_request"
	TypeStatus                 = "status"
	TypeStopped                = "stopped"
)

// IncomingFrame is the union of every shape a client may send. Fields not
// relevant to msg_type are left zero.
type IncomingFrame struct {
	Type          string           `json:"type,omitempty"`
	Message       string           `json:"message,omitempty"`
	Mode          string           `json:"mode,omitempty"`
	Attachments   []map[string]any `json:"attachments,omitempty"`
	SkipWebSearch *bool            `json:"skipWebSearch,omitempty"`
	ThinkingMode  *bool            `json:"thinkingMode,omitempty"`
	AgentID       string           `json:"agentId,omitempty"`
	AgentMode     string           `json:"agentMode,omitempty"`
	SessionID     string           `json:"sessionId,omitempty"`
	RequestID     string           `json:"requestId,omitempty"`
	Approved      *bool            `json:"approved,omitempty"`
}

// IsUserTurn reports whether this frame carries a chat turn rather than one
// of the named control messages.
func (f IncomingFrame) IsUserTurn() bool {
	switch f.Type {
	case TypeStop, TypeGetStats, TypeSetSession, TypeToolConfirmationResponse:
		return false
	default:
		return f.Message != "" || len(f.Attachments) > 0
	}
}
