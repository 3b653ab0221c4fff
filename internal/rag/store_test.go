package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndSearchIdentityScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	emb := []float32{1, 0, 0}
	require.NoError(t, s.Insert(ctx, StoredChunk{ChunkID: "c1", Content: "hello", SessionID: "s1"}, emb))
	require.NoError(t, s.Insert(ctx, StoredChunk{ChunkID: "c2", Content: "world", SessionID: "s1"}, []float32{0, 1, 0}))

	results, err := s.Search(ctx, emb, 1, "s1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ChunkID)
	require.Greater(t, results[0].Score, 0.99)
}

func TestTextSearchEmptyPatternReturnsNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, StoredChunk{ChunkID: "c1", Content: "hello world", SessionID: "s1"}, nil))

	results, err := s.TextSearch(ctx, "", 10, "")
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = s.TextSearch(ctx, "wor", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestGetChunkWindowContiguousAndBounded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []struct {
		id      string
		content string
		offset  float64
	}{
		{"c0", "aaaaaaaaaa", 0},
		{"c1", "bbbbbbbbbb", 10},
		{"c2", "cccccccccc", 20}, // target
		{"c3", "dddddddddd", 30},
		{"c4", "eeeeeeeeee", 40},
	}
	for _, c := range chunks {
		require.NoError(t, s.Insert(ctx, StoredChunk{
			ChunkID: c.id, Content: c.content, Source: "doc1", SessionID: "s1",
			Metadata: map[string]any{"start_offset": c.offset},
		}, nil))
	}

	window, err := s.GetChunkWindow(ctx, "c2", 25, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, window)

	var totalChars int
	var foundTarget bool
	for _, c := range window {
		totalChars += len([]rune(c.Content))
		if c.ChunkID == "c2" {
			foundTarget = true
		}
	}
	require.True(t, foundTarget)
	require.LessOrEqual(t, totalChars, 25+len("cccccccccc"))

	// contiguous: sorted by offset, no gaps in the selected run around target
	for i := 1; i < len(window); i++ {
		require.Less(t, window[i-1].StartOffset(), window[i].StartOffset())
	}
}

func TestReindexWithModelClearsChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, StoredChunk{ChunkID: "c1", Content: "x", SessionID: "s1"}, nil))

	require.NoError(t, s.ReindexWithModel(ctx, "new-embedder"))

	count, err := s.Count(ctx, "")
	require.NoError(t, err)
	require.Zero(t, count)
}
