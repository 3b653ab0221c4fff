package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
	"github.com/coco4atJP/tepora-alpha-sub000/internal/rag"
)

// RagEmbedder computes embeddings for a batch of texts, used to turn a
// rag_search/rag_ingest query into a vector against the chunk store.
type RagEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RagTools bundles the seven RAG-backed native tools over a shared store
// and embedder, each implementing CallableTool independently.
type RagTools struct {
	Store    *rag.Store
	Embedder RagEmbedder
}

func (r *RagTools) embedOne(ctx context.Context, text string) ([]float32, error) {
	if r.Embedder == nil {
		return nil, coreconfig.Unavailable("no embedder configured for RAG tools")
	}
	vectors, err := r.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, coreconfig.Upstream(err, "embedding request failed")
	}
	if len(vectors) == 0 {
		return nil, coreconfig.Internal(nil, "embedder returned no vectors")
	}
	return vectors[0], nil
}

func asJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// RagSearch implements rag_search: embeds the query and returns the
// top-k chunks by cosine similarity, optionally scoped to a session.
type RagSearch struct{ tools *RagTools }

func NewRagSearch(tools *RagTools) *RagSearch { return &RagSearch{tools: tools} }

func (t *RagSearch) Name() string        { return "native_rag_search" }
func (t *RagSearch) Description() string { return "Semantic search over ingested RAG chunks." }
func (t *RagSearch) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":      map[string]any{"type": "string"},
			"limit":      map[string]any{"type": "integer"},
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
}

func (t *RagSearch) Call(ctx context.Context, args map[string]any) (Result, error) {
	query := strings.TrimSpace(firstString(args, "query", "q", "input"))
	if query == "" {
		return Result{}, coreconfig.Validation("rag_search query missing")
	}
	embedding, err := t.tools.embedOne(ctx, query)
	if err != nil {
		return Result{}, err
	}
	limit := intArg(args, "limit", 5)
	sessionID := firstString(args, "session_id")

	results, err := t.tools.Store.Search(ctx, embedding, limit, sessionID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: asJSON(results)}, nil
}

// RagIngest implements rag_ingest: embeds and stores one chunk.
type RagIngest struct{ tools *RagTools }

func NewRagIngest(tools *RagTools) *RagIngest { return &RagIngest{tools: tools} }

func (t *RagIngest) Name() string        { return "native_rag_ingest" }
func (t *RagIngest) Description() string { return "Embed and store one chunk of text for later RAG retrieval." }
func (t *RagIngest) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"chunk_id":   map[string]any{"type": "string"},
			"content":    map[string]any{"type": "string"},
			"source":     map[string]any{"type": "string"},
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"chunk_id", "content"},
	}
}

func (t *RagIngest) Call(ctx context.Context, args map[string]any) (Result, error) {
	chunkID := strings.TrimSpace(firstString(args, "chunk_id"))
	content := firstString(args, "content")
	if chunkID == "" || strings.TrimSpace(content) == "" {
		return Result{}, coreconfig.Validation("rag_ingest requires chunk_id and content")
	}

	embedding, err := t.tools.embedOne(ctx, content)
	if err != nil {
		return Result{}, err
	}

	chunk := rag.StoredChunk{
		ChunkID:   chunkID,
		Content:   content,
		Source:    firstString(args, "source"),
		SessionID: firstString(args, "session_id"),
	}
	if err := t.tools.Store.Insert(ctx, chunk, embedding); err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("ingested chunk %s", chunkID)}, nil
}

// RagTextSearch implements rag_text_search: a substring LIKE search over
// chunk content, bypassing embeddings entirely.
type RagTextSearch struct{ tools *RagTools }

func NewRagTextSearch(tools *RagTools) *RagTextSearch { return &RagTextSearch{tools: tools} }

func (t *RagTextSearch) Name() string        { return "native_rag_text_search" }
func (t *RagTextSearch) Description() string { return "Substring search over ingested RAG chunk content." }
func (t *RagTextSearch) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":    map[string]any{"type": "string"},
			"limit":      map[string]any{"type": "integer"},
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"pattern"},
	}
}

func (t *RagTextSearch) Call(ctx context.Context, args map[string]any) (Result, error) {
	pattern := firstString(args, "pattern", "query", "q")
	if strings.TrimSpace(pattern) == "" {
		return Result{}, coreconfig.Validation("rag_text_search pattern missing")
	}
	limit := intArg(args, "limit", 10)
	sessionID := firstString(args, "session_id")

	chunks, err := t.tools.Store.TextSearch(ctx, pattern, limit, sessionID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: asJSON(chunks)}, nil
}

// RagGetChunk implements rag_get_chunk: fetch one chunk by id.
type RagGetChunk struct{ tools *RagTools }

func NewRagGetChunk(tools *RagTools) *RagGetChunk { return &RagGetChunk{tools: tools} }

func (t *RagGetChunk) Name() string        { return "native_rag_get_chunk" }
func (t *RagGetChunk) Description() string { return "Fetch one RAG chunk by its id." }
func (t *RagGetChunk) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"chunk_id": map[string]any{"type": "string"}},
		"required":   []string{"chunk_id"},
	}
}

func (t *RagGetChunk) Call(ctx context.Context, args map[string]any) (Result, error) {
	chunkID := strings.TrimSpace(firstString(args, "chunk_id"))
	if chunkID == "" {
		return Result{}, coreconfig.Validation("rag_get_chunk requires chunk_id")
	}
	chunk, err := t.tools.Store.GetChunk(ctx, chunkID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: asJSON(chunk)}, nil
}

// RagGetChunkWindow implements rag_get_chunk_window: the target chunk plus
// its nearest same-source neighbors within a character budget.
type RagGetChunkWindow struct{ tools *RagTools }

func NewRagGetChunkWindow(tools *RagTools) *RagGetChunkWindow { return &RagGetChunkWindow{tools: tools} }

func (t *RagGetChunkWindow) Name() string { return "native_rag_get_chunk_window" }
func (t *RagGetChunkWindow) Description() string {
	return "Fetch a RAG chunk along with its neighboring chunks up to a character budget."
}
func (t *RagGetChunkWindow) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"chunk_id":   map[string]any{"type": "string"},
			"max_chars":  map[string]any{"type": "integer"},
			"session_id": map[string]any{"type": "string"},
		},
		"required": []string{"chunk_id"},
	}
}

func (t *RagGetChunkWindow) Call(ctx context.Context, args map[string]any) (Result, error) {
	chunkID := strings.TrimSpace(firstString(args, "chunk_id"))
	if chunkID == "" {
		return Result{}, coreconfig.Validation("rag_get_chunk_window requires chunk_id")
	}
	maxChars := intArg(args, "max_chars", 4000)
	sessionID := firstString(args, "session_id")

	chunks, err := t.tools.Store.GetChunkWindow(ctx, chunkID, maxChars, sessionID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: asJSON(chunks)}, nil
}

// RagClearSession implements rag_clear_session: deletes every chunk
// ingested under a session id.
type RagClearSession struct{ tools *RagTools }

func NewRagClearSession(tools *RagTools) *RagClearSession { return &RagClearSession{tools: tools} }

func (t *RagClearSession) Name() string        { return "native_rag_clear_session" }
func (t *RagClearSession) Description() string { return "Delete all RAG chunks ingested under one session id." }
func (t *RagClearSession) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"session_id": map[string]any{"type": "string"}},
		"required":   []string{"session_id"},
	}
}

func (t *RagClearSession) Call(ctx context.Context, args map[string]any) (Result, error) {
	sessionID := strings.TrimSpace(firstString(args, "session_id"))
	if sessionID == "" {
		return Result{}, coreconfig.Validation("rag_clear_session requires session_id")
	}
	n, err := t.tools.Store.DeleteSession(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("deleted %d chunks for session %s", n, sessionID)}, nil
}

// RagReindex implements rag_reindex: clears the store and records the
// embedding model the next ingest round should use. It does not re-embed
// historical content — see DESIGN.md's Open Question decision.
type RagReindex struct{ tools *RagTools }

func NewRagReindex(tools *RagTools) *RagReindex { return &RagReindex{tools: tools} }

func (t *RagReindex) Name() string        { return "native_rag_reindex" }
func (t *RagReindex) Description() string { return "Clear the RAG store and record the embedding model for future ingests." }
func (t *RagReindex) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"embedding_model": map[string]any{"type": "string"}},
		"required":   []string{"embedding_model"},
	}
}

func (t *RagReindex) Call(ctx context.Context, args map[string]any) (Result, error) {
	model := strings.TrimSpace(firstString(args, "embedding_model"))
	if model == "" {
		return Result{}, coreconfig.Validation("rag_reindex requires embedding_model")
	}
	if err := t.tools.Store.ReindexWithModel(ctx, model); err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("RAG store cleared; embedding model set to %s", model)}, nil
}
