package executor

import (
	"context"
	"testing"

	"github.com/coco4atJP/tepora-alpha-sub000/internal/pipeline"
)

type scriptedBroker struct {
	responses []string
	calls     int
}

func (b *scriptedBroker) Chat(ctx context.Context, model string, messages []pipeline.ChatMessage) (string, error) {
	r := b.responses[b.calls]
	b.calls++
	return r, nil
}

type allowAllPolicy struct{ confirm map[string]bool }

func (p allowAllPolicy) IsAllowed(name string) bool { return true }
func (p allowAllPolicy) RequiresConfirmation(name string) bool {
	if p.confirm == nil {
		return false
	}
	return p.confirm[name]
}

type fakeTool struct {
	out ToolOutput
	err error
}

func (t fakeTool) Call(ctx context.Context, args map[string]any) (ToolOutput, error) {
	return t.out, t.err
}

type fakeToolSet struct {
	tools map[string]Tool
	mcp   map[string]bool
}

func (s fakeToolSet) Lookup(name string) (Tool, bool) { t, ok := s.tools[name]; return t, ok }
func (s fakeToolSet) IsMCP(name string) bool          { return s.mcp[name] }

type fakeConfirmer struct{ approve bool }

func (c fakeConfirmer) RequestConfirmation(ctx context.Context, requestID, toolName string, args map[string]any) bool {
	return c.approve
}

type recordingEmitter struct {
	steps    int
	done     bool
	chunks   []string
	statuses []string
}

func (e *recordingEmitter) EmitReasoningStep(step, max int)              { e.steps++ }
func (e *recordingEmitter) EmitStatus(message string)                    { e.statuses = append(e.statuses, message) }
func (e *recordingEmitter) EmitChunk(content string)                     { e.chunks = append(e.chunks, content) }
func (e *recordingEmitter) EmitDone()                                    { e.done = true }
func (e *recordingEmitter) EmitSearchResults(r []pipeline.SearchResult) {}

func TestRunReturnsImmediateFinalAnswer(t *testing.T) {
	broker := &scriptedBroker{responses: []string{`{"type":"final","content":"42"}`}}
	emitter := &recordingEmitter{}
	ex := New(broker, fakeToolSet{}, allowAllPolicy{}, fakeConfirmer{}, emitter, nil, Config{}, nil)

	out, err := ex.Run(context.Background(), "s1", "model", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "42" {
		t.Fatalf("expected final answer 42, got %q", out)
	}
	if !emitter.done || broker.calls != 1 {
		t.Fatalf("expected a single broker call and a done event, got calls=%d done=%v", broker.calls, emitter.done)
	}
}

func TestRunExecutesToolThenReturnsFinal(t *testing.T) {
	broker := &scriptedBroker{responses: []string{
		`{"type":"tool_call","tool_name":"native_search","tool_args":{"query":"go"}}`,
		`{"type":"final","content":"done searching"}`,
	}}
	tools := fakeToolSet{tools: map[string]Tool{"native_search": fakeTool{out: ToolOutput{Text: "result text"}}}}
	emitter := &recordingEmitter{}
	ex := New(broker, tools, allowAllPolicy{}, fakeConfirmer{}, emitter, nil, Config{}, nil)

	out, err := ex.Run(context.Background(), "s1", "model", []string{"native_search"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done searching" {
		t.Fatalf("expected final answer, got %q", out)
	}
	if broker.calls != 2 {
		t.Fatalf("expected two broker calls, got %d", broker.calls)
	}
}

func TestRunStopsAtMaxSteps(t *testing.T) {
	broker := &scriptedBroker{responses: []string{
		`{"type":"tool_call","tool_name":"native_search","tool_args":{}}`,
		`{"type":"tool_call","tool_name":"native_search","tool_args":{}}`,
	}}
	tools := fakeToolSet{tools: map[string]Tool{"native_search": fakeTool{out: ToolOutput{Text: "x"}}}}
	emitter := &recordingEmitter{}
	ex := New(broker, tools, allowAllPolicy{}, fakeConfirmer{}, emitter, nil, Config{MaxSteps: 2}, nil)

	out, err := ex.Run(context.Background(), "s1", "model", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Agent reached the maximum number of steps without a final answer." {
		t.Fatalf("expected max-steps fallback, got %q", out)
	}
	if broker.calls != 2 {
		t.Fatalf("expected exactly MaxSteps broker calls, got %d", broker.calls)
	}
}

func TestRunDeniedToolAppendsSystemNoteAndLoops(t *testing.T) {
	broker := &scriptedBroker{responses: []string{
		`{"type":"tool_call","tool_name":"native_search","tool_args":{}}`,
		`{"type":"final","content":"gave up"}`,
	}}
	tools := fakeToolSet{tools: map[string]Tool{"native_search": fakeTool{out: ToolOutput{Text: "x"}}}}
	ex := New(broker, tools, allowAllPolicy{confirm: map[string]bool{"native_search": true}}, fakeConfirmer{approve: false}, &recordingEmitter{}, nil, Config{}, nil)

	out, err := ex.Run(context.Background(), "s1", "model", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "gave up" {
		t.Fatalf("expected the loop to continue after denial, got %q", out)
	}
}

func TestRunDisallowedToolNeverInvokesIt(t *testing.T) {
	broker := &scriptedBroker{responses: []string{
		`{"type":"tool_call","tool_name":"native_search","tool_args":{}}`,
		`{"type":"final","content":"no tool used"}`,
	}}
	calls := 0
	tools := fakeToolSet{tools: map[string]Tool{"native_search": countingTool{&calls}}}

	ex := New(broker, tools, denyPolicy{}, fakeConfirmer{}, &recordingEmitter{}, nil, Config{}, nil)

	out, err := ex.Run(context.Background(), "s1", "model", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "no tool used" {
		t.Fatalf("expected final answer after denied tool, got %q", out)
	}
	if calls != 0 {
		t.Fatalf("expected the disallowed tool to never be invoked, got %d calls", calls)
	}
}

type countingTool struct{ calls *int }

func (t countingTool) Call(ctx context.Context, args map[string]any) (ToolOutput, error) {
	*t.calls++
	return ToolOutput{}, nil
}

type denyPolicy struct{}

func (denyPolicy) IsAllowed(name string) bool           { return false }
func (denyPolicy) RequiresConfirmation(name string) bool { return false }
