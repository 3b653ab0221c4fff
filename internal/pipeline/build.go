package pipeline

import (
	"context"
	"sort"

	coretool "github.com/coco4atJP/tepora-alpha-sub000/internal/tool"
)

// HistorySource supplies the most-recent-N persisted messages for a
// session, oldest first.
type HistorySource interface {
	RecentMessages(ctx context.Context, sessionID string, n int) ([]ChatMessage, error)
}

// MemorySource supplies episodic-memory fragments relevant to a query.
type MemorySource interface {
	RetrieveMemories(ctx context.Context, query string, n int) ([]MemoryChunk, error)
}

// RagSource supplies RAG chunks relevant to a query, scoped to a session.
type RagSource interface {
	SearchRag(ctx context.Context, sessionID, query string) ([]RagChunk, error)
}

// Embedder computes embeddings for a batch of texts (used for web-search
// rerank).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BuildConfig bundles the optional data sources a turn may draw from, plus
// the knobs controlling history windowing and web-search rerank.
type BuildConfig struct {
	History  HistorySource
	Memory   MemorySource
	Rag      RagSource
	Search   coretool.SearchEngine
	Embedder Embedder

	HistoryWindow   int // default 40
	MemoryTopK      int // default 5
	RerankEnabled   bool
	Budget          TokenBudget
}

func (c BuildConfig) historyWindow() int {
	if c.HistoryWindow > 0 {
		return c.HistoryWindow
	}
	return 40
}

func (c BuildConfig) memoryTopK() int {
	if c.MemoryTopK > 0 {
		return c.MemoryTopK
	}
	return 5
}

// Build constructs the pipeline context for one turn. It consults history,
// memory, RAG, and (if mode allows and skipWebSearch is false) web search,
// but never mutates any store.
func Build(ctx context.Context, sessionID, turnID, userInput string, mode Mode, skipWebSearch bool, persona *Persona, cfg BuildConfig) (*Context, error) {
	pc := &Context{
		SessionID:     sessionID,
		TurnID:        turnID,
		Mode:          mode,
		UserInput:     userInput,
		WorkingMemory: map[string]any{},
		TokenBudget:   cfg.Budget,
	}
	if pc.TokenBudget.Max == 0 {
		pc.TokenBudget = DefaultTokenBudget()
	}

	if mode.HasPersona() {
		pc.Persona = persona
	}

	if cfg.History != nil {
		hist, err := cfg.History.RecentMessages(ctx, sessionID, cfg.historyWindow())
		if err != nil {
			return nil, err
		}
		pc.History = hist
	}

	if cfg.Memory != nil {
		chunks, err := cfg.Memory.RetrieveMemories(ctx, userInput, cfg.memoryTopK())
		if err != nil {
			return nil, err
		}
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].RelevanceScore > chunks[j].RelevanceScore })
		pc.MemoryChunks = chunks
	}

	if mode.HasRAG() && cfg.Rag != nil {
		chunks, err := cfg.Rag.SearchRag(ctx, sessionID, userInput)
		if err != nil {
			return nil, err
		}
		pc.RagChunks = chunks
	}

	if mode.HasWebSearch() && !skipWebSearch && cfg.Search != nil {
		results, err := runWebSearch(ctx, cfg, userInput)
		if err != nil {
			return nil, err
		}
		pc.SearchResults = results
	}

	return pc, nil
}
