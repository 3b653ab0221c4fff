package pipeline

import (
	"context"
	"testing"

	coretool "github.com/coco4atJP/tepora-alpha-sub000/internal/tool"
)

type fakeHistory struct{ msgs []ChatMessage }

func (f *fakeHistory) RecentMessages(ctx context.Context, sessionID string, n int) ([]ChatMessage, error) {
	return f.msgs, nil
}

type fakeMemory struct{ chunks []MemoryChunk }

func (f *fakeMemory) RetrieveMemories(ctx context.Context, query string, n int) ([]MemoryChunk, error) {
	return f.chunks, nil
}

type fakeRag struct{ chunks []RagChunk }

func (f *fakeRag) SearchRag(ctx context.Context, sessionID, query string) ([]RagChunk, error) {
	return f.chunks, nil
}

type fakeSearch struct{ results []coretool.SearchResult }

func (f *fakeSearch) Search(ctx context.Context, query string) ([]coretool.SearchResult, error) {
	return f.results, nil
}

type fakeEmbedder struct{ vectors map[string][]float32 }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestBuildPopulatesHistoryMemoryAndRag(t *testing.T) {
	cfg := BuildConfig{
		History: &fakeHistory{msgs: []ChatMessage{{Role: "user", Content: "earlier"}}},
		Memory:  &fakeMemory{chunks: []MemoryChunk{{Content: "fact", RelevanceScore: 0.5}}},
		Rag:     &fakeRag{chunks: []RagChunk{{Content: "doc"}}},
	}

	ctx, err := Build(context.Background(), "s1", "t1", "hello", ModeSearchFast, true, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.History) != 1 || len(ctx.MemoryChunks) != 1 || len(ctx.RagChunks) != 1 {
		t.Fatalf("expected history/memory/rag populated, got %+v", ctx)
	}
}

func TestBuildSkipsWebSearchWhenRequested(t *testing.T) {
	cfg := BuildConfig{Search: &fakeSearch{results: []coretool.SearchResult{{Title: "t"}}}}

	ctx, err := Build(context.Background(), "s1", "t1", "hello", ModeSearchFast, true, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.SearchResults) != 0 {
		t.Fatalf("expected skip_web_search=true to suppress search, got %+v", ctx.SearchResults)
	}
}

func TestBuildChatModeNeverSearches(t *testing.T) {
	cfg := BuildConfig{Search: &fakeSearch{results: []coretool.SearchResult{{Title: "t"}}}}

	ctx, err := Build(context.Background(), "s1", "t1", "hello", ModeChat, false, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.SearchResults) != 0 {
		t.Fatalf("expected chat mode to never invoke web search, got %+v", ctx.SearchResults)
	}
}

func TestBuildRerankReordersByCosineSimilarity(t *testing.T) {
	cfg := BuildConfig{
		Search: &fakeSearch{results: []coretool.SearchResult{
			{Title: "far", Snippet: "unrelated"},
			{Title: "near", Snippet: "closely matches the query"},
		}},
		Embedder: &fakeEmbedder{vectors: map[string][]float32{
			"best query":                      {1, 0},
			"far\nunrelated":                  {0, 1},
			"near\nclosely matches the query": {1, 0},
		}},
		RerankEnabled: true,
	}

	ctx, err := Build(context.Background(), "s1", "t1", "best query", ModeSearchFast, false, nil, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.SearchResults) != 2 || ctx.SearchResults[0].Title != "near" {
		t.Fatalf("expected the closer-matching result first, got %+v", ctx.SearchResults)
	}
}
