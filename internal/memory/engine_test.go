package memory

import "testing"

func TestProcessLogprobsForMemoryCreatesEvents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SurpriseWindow = 4
	cfg.MinEventSize = 2
	cfg.MaxEventSize = 10
	e := NewEngine(cfg)

	tokens := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	logprobs := []float64{-0.5, -0.6, -0.5, -0.4, -0.5, -3.0, -0.6, -0.5, -0.4}
	embeddings := make([][]float32, len(tokens))
	for i := range embeddings {
		embeddings[i] = []float32{float32(i), 0, 0}
	}

	events, err := e.ProcessLogprobsForMemory(tokens, logprobs, embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) < 2 {
		t.Fatalf("expected at least 2 events from the surprise spike, got %d", len(events))
	}

	stats := e.GetStatistics()
	if stats.TotalEvents != len(events) {
		t.Fatalf("statistics event count mismatch: %d vs %d", stats.TotalEvents, len(events))
	}
	if stats.TotalTokens != len(tokens) {
		t.Fatalf("statistics token count mismatch: %d vs %d", stats.TotalTokens, len(tokens))
	}
}

func TestRepresentativeTokensAreInPositionalOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReprTopK = 2
	e := NewEngine(cfg)

	ev := EpisodicEvent{
		Tokens:         []string{"a", "b", "c", "d"},
		SurpriseScores: []float64{0.1, 0.9, 0.2, 0.8},
	}
	top := e.selectRepresentativeTokens(ev)
	if len(top) != 2 {
		t.Fatalf("expected 2 representative tokens, got %d", len(top))
	}
	if top[0] >= top[1] {
		t.Fatalf("expected positional order, got %v", top)
	}
	if top[0] != 1 || top[1] != 3 {
		t.Fatalf("expected indices {1,3} (highest surprise), got %v", top)
	}
}

func TestRetrieveMemoriesEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalRetrievedEvents = 2
	e := NewEngine(cfg)

	tokens := []string{"a", "b", "c", "d"}
	embeddings := [][]float32{{1, 0}, {0, 1}, {1, 0}, {0, 1}}
	_, err := e.ProcessConversationForMemory(tokens, embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := e.RetrieveMemories([]float32{1, 0})
	if len(result) == 0 {
		t.Fatalf("expected at least one retrieved event")
	}
}
