package executor

import "testing"

func TestParseDecisionPureJSONToolCall(t *testing.T) {
	d := ParseDecision(`{"type":"tool_call","tool_name":"native_search","tool_args":{"query":"go"}}`)
	if d.Kind != DecisionToolCall || d.ToolName != "native_search" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.ToolArgs["query"] != "go" {
		t.Fatalf("expected tool_args to carry through, got %+v", d.ToolArgs)
	}
}

func TestParseDecisionAliasFields(t *testing.T) {
	d := ParseDecision(`{"action":"tool_call","name":"native_web_fetch","args":{"url":"https://x"}}`)
	if d.Kind != DecisionToolCall || d.ToolName != "native_web_fetch" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestParseDecisionFinal(t *testing.T) {
	d := ParseDecision(`{"type":"final","content":"all done"}`)
	if d.Kind != DecisionFinal || d.Content != "all done" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestParseDecisionExtractsBracesFromSurroundingText(t *testing.T) {
	d := ParseDecision("here is my answer: {\"type\":\"final\",\"content\":\"42\"} thanks")
	if d.Kind != DecisionFinal || d.Content != "42" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestParseDecisionFallsBackToWholeTextAsFinal(t *testing.T) {
	d := ParseDecision("just a plain answer with no JSON")
	if d.Kind != DecisionFinal || d.Content != "just a plain answer with no JSON" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestParseDecisionUnknownTypeFallsBackToFinal(t *testing.T) {
	d := ParseDecision(`{"type":"something_else","content":"x"}`)
	if d.Kind != DecisionFinal {
		t.Fatalf("expected unrecognized type to fall back to final, got %+v", d)
	}
}
