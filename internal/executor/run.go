package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coco4atJP/tepora-alpha-sub000/internal/pipeline"
)

// Executor drives one bounded ReAct loop over a broker and a tool set.
type Executor struct {
	broker    Broker
	tools     ToolSet
	policy    ToolPolicy
	confirmer Confirmer
	emitter   ActivityEmitter
	history   HistoryAppender
	cfg       Config

	approvedMCP map[string]bool
}

// New constructs an Executor. approvedMCP, when non-nil, is the
// session-scoped set of MCP tools already approved via first use; it is
// mutated in place as further first-use approvals are granted, so the
// caller can persist it across turns within the same session.
func New(broker Broker, tools ToolSet, policy ToolPolicy, confirmer Confirmer, emitter ActivityEmitter, history HistoryAppender, cfg Config, approvedMCP map[string]bool) *Executor {
	if approvedMCP == nil {
		approvedMCP = map[string]bool{}
	}
	return &Executor{
		broker: broker, tools: tools, policy: policy, confirmer: confirmer,
		emitter: emitter, history: history, cfg: cfg, approvedMCP: approvedMCP,
	}
}

// Run executes the loop starting from the compiled initial message list,
// returning the final answer text.
func (e *Executor) Run(ctx context.Context, sessionID, model string, toolNames []string, messages []pipeline.ChatMessage) (string, error) {
	max := e.cfg.maxSteps()

	messages = append(messages, pipeline.ChatMessage{
		Role:    "system",
		Content: buildAgentInstructions(toolNames),
	})

	for step := 0; step < max; step++ {
		e.emitter.EmitReasoningStep(step+1, max)

		response, err := e.broker.Chat(ctx, model, messages)
		if err != nil {
			return "", err
		}

		decision := ParseDecision(response)

		switch decision.Kind {
		case DecisionFinal:
			e.emitter.EmitChunk(decision.Content)
			e.emitter.EmitDone()
			return decision.Content, nil

		case DecisionToolCall:
			note, appended := e.handleToolCall(ctx, sessionID, step, max, decision)
			if note != "" {
				messages = append(messages, pipeline.ChatMessage{Role: "system", Content: note})
			}
			_ = appended
		}
	}

	fallback := "Agent reached the maximum number of steps without a final answer."
	e.emitter.EmitChunk(fallback)
	e.emitter.EmitDone()
	return fallback, nil
}

// handleToolCall processes one tool_call decision and returns the system
// note to append to the running message list.
func (e *Executor) handleToolCall(ctx context.Context, sessionID string, step, max int, decision Decision) (note string, invoked bool) {
	name := decision.ToolName

	if !e.policy.IsAllowed(name) {
		return fmt.Sprintf("Tool `%s` is not permitted by the current tool policy.", name), false
	}

	if e.requiresConfirmation(name) {
		requestID := uuid.NewString()
		approved := e.confirmer.RequestConfirmation(ctx, requestID, name, decision.ToolArgs)
		if !approved {
			e.emitter.EmitStatus(fmt.Sprintf("Tool %s denied by user", name))
			return fmt.Sprintf("Tool `%s` was not approved by the user.", name), false
		}
		if e.tools.IsMCP(name) {
			e.approvedMCP[name] = true
		}
	}

	tool, ok := e.tools.Lookup(name)
	if !ok {
		return fmt.Sprintf("Tool `%s` is not available.", name), false
	}

	out, err := tool.Call(ctx, decision.ToolArgs)
	if err != nil {
		return fmt.Sprintf("Tool `%s` failed: %v", name, err), false
	}

	if len(out.SearchResults) > 0 {
		e.emitter.EmitSearchResults(out.SearchResults)
	}

	payload := fmt.Sprintf("Tool `%s` result:\n%s", name, out.Text)
	if e.history != nil {
		_ = e.history.AppendMessage(ctx, sessionID, "tool", payload, map[string]any{"tool": name})
	}
	e.emitter.EmitStatus(fmt.Sprintf("Executed tool %s (step %d/%d)", name, step+1, max))

	return payload, true
}

// requiresConfirmation applies the policy/MCP first-use/MCP per-call
// confirmation rule.
func (e *Executor) requiresConfirmation(name string) bool {
	if e.tools.IsMCP(name) {
		if !e.approvedMCP[name] {
			return true
		}
	}
	return e.policy.RequiresConfirmation(name)
}
