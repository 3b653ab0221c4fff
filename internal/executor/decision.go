package executor

import (
	"encoding/json"
	"strings"
)

// DecisionKind distinguishes the two shapes the model may emit.
type DecisionKind int

const (
	DecisionFinal DecisionKind = iota
	DecisionToolCall
)

// Decision is one parsed model turn.
type Decision struct {
	Kind     DecisionKind
	Content  string         // set when Kind == DecisionFinal
	ToolName string         // set when Kind == DecisionToolCall
	ToolArgs map[string]any // set when Kind == DecisionToolCall
}

// ParseDecision prefers a pure JSON body; failing that, it extracts the
// substring between the first '{' and last '}'. Recognized shapes:
// {"type":"tool_call","tool_name":...,"tool_args":{...}} or
// {"type":"final","content":"..."}, with action/name/tool/args aliases.
// Any failure to extract a valid structured decision falls back to
// treating the whole text as a final answer.
func ParseDecision(text string) Decision {
	if raw := extractJSONObject(text); raw != nil {
		if d, ok := decisionFromValue(raw); ok {
			return d
		}
	}
	return Decision{Kind: DecisionFinal, Content: strings.TrimSpace(text)}
}

func extractJSONObject(text string) map[string]any {
	trimmed := strings.TrimSpace(text)

	var direct map[string]any
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil {
		return direct
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < 0 || end <= start {
		return nil
	}

	var sliced map[string]any
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &sliced); err != nil {
		return nil
	}
	return sliced
}

func decisionFromValue(v map[string]any) (Decision, bool) {
	actionType, _ := firstStringKey(v, "type", "action")

	switch actionType {
	case "tool_call":
		name, ok := firstStringKey(v, "tool_name", "name", "tool")
		if !ok {
			return Decision{}, false
		}
		args, _ := firstMapKey(v, "tool_args", "args")
		if args == nil {
			args = map[string]any{}
		}
		return Decision{Kind: DecisionToolCall, ToolName: name, ToolArgs: args}, true

	case "final":
		content, _ := firstStringKey(v, "content")
		return Decision{Kind: DecisionFinal, Content: content}, true

	default:
		return Decision{}, false
	}
}

func firstStringKey(v map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := v[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

func firstMapKey(v map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := v[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}
