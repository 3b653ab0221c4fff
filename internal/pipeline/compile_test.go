package pipeline

import (
	"strings"
	"testing"
)

func TestCompileOrdersBlocksAndTrailingUserInput(t *testing.T) {
	ctx := &Context{
		Mode:        ModeChat,
		UserInput:   "hello",
		TokenBudget: DefaultTokenBudget(),
	}
	ctx.AddSystemPart("base", "you are a helpful assistant", 100)
	ctx.MemoryChunks = []MemoryChunk{{Content: "remembered fact"}}
	ctx.RagChunks = []RagChunk{{Content: "doc chunk", Score: 0.9}}

	msgs := Compile(ctx)
	if len(msgs) == 0 {
		t.Fatal("expected at least one message")
	}
	if msgs[len(msgs)-1].Role != "user" || msgs[len(msgs)-1].Content != "hello" {
		t.Fatalf("expected trailing user message, got %+v", msgs[len(msgs)-1])
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "helpful assistant") {
		t.Fatalf("expected first message to be the system prompt, got %+v", msgs[0])
	}

	foundMemory, foundRag := false, false
	for _, m := range msgs {
		if strings.Contains(m.Content, "[Memory Context]") {
			foundMemory = true
		}
		if strings.Contains(m.Content, "(score: 0.90)") {
			foundRag = true
		}
	}
	if !foundMemory || !foundRag {
		t.Fatalf("expected memory and rag blocks present, got %+v", msgs)
	}
}

func TestCompileSystemPartsOrderedByPriorityDescending(t *testing.T) {
	ctx := &Context{Mode: ModeChat, UserInput: "x", TokenBudget: DefaultTokenBudget()}
	ctx.AddSystemPart("low", "low priority text", 10)
	ctx.AddSystemPart("high", "high priority text", 200)
	ctx.AddSystemPart("mid", "mid priority text", 100)

	msgs := Compile(ctx)
	system := msgs[0].Content
	highPos := strings.Index(system, "high priority text")
	midPos := strings.Index(system, "mid priority text")
	lowPos := strings.Index(system, "low priority text")
	if !(highPos < midPos && midPos < lowPos) {
		t.Fatalf("expected priority-descending order in %q", system)
	}
}

func TestCompilePersonaUsesRawPromptTextWhenSet(t *testing.T) {
	ctx := &Context{
		Mode:        ModeChat,
		UserInput:   "hi",
		TokenBudget: DefaultTokenBudget(),
		Persona:     &Persona{Name: "Tepora", PromptText: "I am a custom persona prompt."},
	}

	msgs := Compile(ctx)
	if !strings.Contains(msgs[0].Content, "custom persona prompt") {
		t.Fatalf("expected raw prompt_text to be used verbatim, got %q", msgs[0].Content)
	}
}

func TestCompilePersonaFallsBackToFormattedSection(t *testing.T) {
	ctx := &Context{
		Mode:        ModeChat,
		UserInput:   "hi",
		TokenBudget: DefaultTokenBudget(),
		Persona:     &Persona{Name: "Tepora", Description: "a calm assistant", Traits: []string{"warm", "calm"}},
	}

	msgs := Compile(ctx)
	if !strings.Contains(msgs[0].Content, "Your name is Tepora") || !strings.Contains(msgs[0].Content, "warm, calm") {
		t.Fatalf("expected formatted persona section, got %q", msgs[0].Content)
	}
}

func TestNormalizeHistoryReRolesToolAndDropsEmpty(t *testing.T) {
	history := []ChatMessage{
		{Role: "tool", Content: "tool output"},
		{Role: "user", Content: ""},
		{Role: "assistant", Content: "kept"},
	}

	out := normalizeHistory(history)
	if len(out) != 2 {
		t.Fatalf("expected empty message dropped, got %+v", out)
	}
	if out[0].Role != "assistant" {
		t.Fatalf("expected tool role re-roled to assistant, got %q", out[0].Role)
	}
}

func TestCompileScratchpadOnlyWhenModeSupportsIt(t *testing.T) {
	ctx := &Context{
		Mode:        ModeAgentDirect,
		UserInput:   "go",
		TokenBudget: DefaultTokenBudget(),
		Scratchpad:  []ScratchpadEntry{{Thought: "plan first", Action: "call tool", Observation: "tool said ok"}},
	}

	msgs := Compile(ctx)
	var thought, action, observation bool
	for _, m := range msgs {
		if strings.Contains(m.Content, "Thought: plan first") {
			thought = true
		}
		if strings.Contains(m.Content, "Action: call tool") {
			action = true
		}
		if m.Role == "user" && strings.Contains(m.Content, "Observation: tool said ok") {
			observation = true
		}
	}
	if !thought || !action || !observation {
		t.Fatalf("expected scratchpad replayed as thought/action/observation, got %+v", msgs)
	}
}

func TestTrimToBudgetDropsLowestPrioritySystemPartsBeforeHistory(t *testing.T) {
	budget := TokenBudget{Max: 10, ReservedOutput: 0}
	systemParts := []SystemPart{
		{Label: "keep", Content: strings.Repeat("a", 8), Priority: 100},
		{Label: "drop-me", Content: strings.Repeat("b", 40), Priority: 1},
	}
	history := []ChatMessage{{Role: "user", Content: "short"}}

	trimmedParts, trimmedHistory := trimToBudget(budget, systemParts, history)
	if len(trimmedParts) != 1 || trimmedParts[0].Label != "keep" {
		t.Fatalf("expected the low-priority fragment dropped first, got %+v", trimmedParts)
	}
	if len(trimmedHistory) != 1 {
		t.Fatalf("expected history preserved once budget fits, got %+v", trimmedHistory)
	}
}

func TestModePredicates(t *testing.T) {
	if !ModeChat.HasPersona() || ModeChat.HasTools() || ModeChat.HasRAG() || ModeChat.HasWebSearch() {
		t.Fatal("chat mode predicates mismatch")
	}
	if ModeSearchAgentic.HasPersona() {
		t.Fatal("search-agentic must not show a persona")
	}
	if !ModeAgentHigh.HasSubAgents() || !ModeAgentHigh.HasScratchpad() {
		t.Fatal("agent-high must support sub-agents and scratchpad")
	}
	if ModeAgentDirect.HasSubAgents() {
		t.Fatal("agent-direct must not support sub-agents")
	}
}
