// Package executor drives the bounded agent ReAct loop: it alternates
// broker chat calls with tool invocations until a final answer or a step
// bound is reached.
package executor

import (
	"context"

	"github.com/coco4atJP/tepora-alpha-sub000/internal/pipeline"
)

// DefaultMaxSteps is MAX when the caller doesn't override it via
// graph_recursion_limit.
const DefaultMaxSteps = 6

// DefaultConfirmationTimeoutSeconds is the tool_confirmation_response wait
// before an absent response counts as a denial.
const DefaultConfirmationTimeoutSeconds = 300

// Broker is the subset of the inference broker the executor needs.
type Broker interface {
	Chat(ctx context.Context, model string, messages []pipeline.ChatMessage) (string, error)
}

// ToolPolicy decides whether a (canonicalized) tool name is allowed.
type ToolPolicy interface {
	IsAllowed(name string) bool
	RequiresConfirmation(name string) bool
}

// Tool is any native or MCP-backed tool callable by name.
type Tool interface {
	Call(ctx context.Context, args map[string]any) (ToolOutput, error)
}

// ToolOutput is the normalized result of a tool call, independent of which
// concrete tool package produced it.
type ToolOutput struct {
	Text          string
	SearchResults []pipeline.SearchResult
}

// ToolSet resolves a canonicalized tool name to a callable Tool.
type ToolSet interface {
	Lookup(name string) (Tool, bool)
	// IsMCP reports whether name belongs to an MCP-backed server (for the
	// first-use-confirmation / per-session-approval rule).
	IsMCP(name string) bool
}

// Confirmer requests out-of-band user approval for one tool call and
// blocks until a response arrives or the timeout elapses. An absent
// response must be treated as denial.
type Confirmer interface {
	RequestConfirmation(ctx context.Context, requestID, toolName string, args map[string]any) (approved bool)
}

// ActivityEmitter streams step/status/chunk/done events for observability
// and for the client UI's progress display.
type ActivityEmitter interface {
	EmitReasoningStep(step, max int)
	EmitStatus(message string)
	EmitChunk(content string)
	EmitDone()
	EmitSearchResults(results []pipeline.SearchResult)
}

// HistoryAppender persists the tool-role message produced after each tool
// call.
type HistoryAppender interface {
	AppendMessage(ctx context.Context, sessionID, role, content string, metadata map[string]any) error
}

// Config tunes one executor run.
type Config struct {
	MaxSteps                   int
	ConfirmationTimeoutSeconds int
}

func (c Config) maxSteps() int {
	if c.MaxSteps <= 0 {
		return DefaultMaxSteps
	}
	if c.MaxSteps > 10000 {
		return 10000
	}
	return c.MaxSteps
}
