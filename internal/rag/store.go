// Package rag implements the vector/text chunk store used as the RAG
// back-end: insert, similarity search, text search, and windowed neighbor
// expansion over a flat SQLite-backed table.
package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// StoredChunk is one row of the chunk store.
type StoredChunk struct {
	ChunkID   string
	Content   string
	Source    string
	SessionID string
	Metadata  map[string]any
}

// StartOffset reads metadata["start_offset"], defaulting to 0.
func (c *StoredChunk) StartOffset() int {
	if c.Metadata == nil {
		return 0
	}
	if v, ok := c.Metadata["start_offset"]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk StoredChunk
	Score float64
}

const createChunksTableSQL = `
CREATE TABLE IF NOT EXISTS rag_chunks (
	chunk_id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL DEFAULT '',
	metadata TEXT DEFAULT '{}',
	embedding BLOB,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rag_session ON rag_chunks(session_id);
`

const createMetaTableSQL = `
CREATE TABLE IF NOT EXISTS rag_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Store is the SQLite-backed implementation of the RAG chunk store.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, coreconfig.Internal(err, "opening rag database")
	}
	s := &Store{db: db}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createChunksTableSQL); err != nil {
		db.Close()
		return nil, coreconfig.Internal(err, "creating rag_chunks table")
	}
	if _, err := db.ExecContext(ctx, createMetaTableSQL); err != nil {
		db.Close()
		return nil, coreconfig.Internal(err, "creating rag_meta table")
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func serializeEmbedding(e []float32) []byte {
	buf := make([]byte, 4*len(e))
	for i, f := range e {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeEmbedding(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// CosineSimilarity returns 0 for mismatched lengths, empty vectors, or a
// near-zero denominator (avoids NaN).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom <= 1e-12 {
		return 0
	}
	return dot / denom
}

// Insert upserts a chunk by chunk id.
func (s *Store) Insert(ctx context.Context, chunk StoredChunk, embedding []float32) error {
	return s.InsertBatch(ctx, []struct {
		Chunk     StoredChunk
		Embedding []float32
	}{{chunk, embedding}})
}

// InsertBatch upserts many chunks inside a single transaction.
func (s *Store) InsertBatch(ctx context.Context, items []struct {
	Chunk     StoredChunk
	Embedding []float32
}) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coreconfig.Internal(err, "beginning rag insert transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO rag_chunks (chunk_id, content, source, session_id, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return coreconfig.Internal(err, "preparing rag insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, item := range items {
		metaStr := "{}"
		if item.Chunk.Metadata != nil {
			b, err := json.Marshal(item.Chunk.Metadata)
			if err != nil {
				return coreconfig.Internal(err, "marshaling chunk metadata")
			}
			metaStr = string(b)
		}
		blob := serializeEmbedding(item.Embedding)
		if _, err := stmt.ExecContext(ctx, item.Chunk.ChunkID, item.Chunk.Content, item.Chunk.Source,
			item.Chunk.SessionID, metaStr, blob, now); err != nil {
			return coreconfig.Internal(err, "inserting chunk %s", item.Chunk.ChunkID)
		}
	}

	if err := tx.Commit(); err != nil {
		return coreconfig.Internal(err, "committing rag insert transaction")
	}
	return nil
}

func rowToChunk(chunkID, content, source, sessionID, metaStr string) StoredChunk {
	var meta map[string]any
	_ = json.Unmarshal([]byte(metaStr), &meta)
	return StoredChunk{ChunkID: chunkID, Content: content, Source: source, SessionID: sessionID, Metadata: meta}
}

// Search performs brute-force cosine similarity over all matching rows,
// descending sort, truncated to limit.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, limit int, sessionID string) ([]SearchResult, error) {
	query := `SELECT chunk_id, content, source, session_id, metadata, embedding FROM rag_chunks`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreconfig.Internal(err, "querying rag_chunks for search")
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var chunkID, content, source, sid, metaStr string
		var embeddingBlob []byte
		if err := rows.Scan(&chunkID, &content, &source, &sid, &metaStr, &embeddingBlob); err != nil {
			return nil, coreconfig.Internal(err, "scanning rag_chunks row")
		}
		if len(embeddingBlob) == 0 {
			continue
		}
		stored := deserializeEmbedding(embeddingBlob)
		score := CosineSimilarity(queryEmbedding, stored)
		results = append(results, SearchResult{Chunk: rowToChunk(chunkID, content, source, sid, metaStr), Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, coreconfig.Internal(err, "iterating rag_chunks rows")
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit < 1 {
		limit = 1
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// TextSearch is a substring LIKE search, newest-first.
func (s *Store) TextSearch(ctx context.Context, pattern string, limit int, sessionID string) ([]StoredChunk, error) {
	trimmed := strings.TrimSpace(pattern)
	escaped := "%" + trimmed + "%"
	if escaped == "%%" {
		return nil, nil
	}
	if limit < 1 {
		limit = 1
	}

	query := `SELECT chunk_id, content, source, session_id, metadata FROM rag_chunks WHERE content LIKE ?`
	args := []any{escaped}
	if sessionID != "" {
		query = `SELECT chunk_id, content, source, session_id, metadata FROM rag_chunks WHERE session_id = ? AND content LIKE ?`
		args = []any{sessionID, escaped}
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreconfig.Internal(err, "querying rag text search")
	}
	defer rows.Close()

	var out []StoredChunk
	for rows.Next() {
		var chunkID, content, source, sid, metaStr string
		if err := rows.Scan(&chunkID, &content, &source, &sid, &metaStr); err != nil {
			return nil, coreconfig.Internal(err, "scanning text search row")
		}
		out = append(out, rowToChunk(chunkID, content, source, sid, metaStr))
	}
	return out, rows.Err()
}

// GetChunk fetches a chunk by id, returning a not-found error if absent.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*StoredChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chunk_id, content, source, session_id, metadata FROM rag_chunks WHERE chunk_id = ?`, chunkID)
	var id, content, source, sid, metaStr string
	if err := row.Scan(&id, &content, &source, &sid, &metaStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, coreconfig.NotFound("chunk %s", chunkID)
		}
		return nil, coreconfig.Internal(err, "fetching chunk %s", chunkID)
	}
	c := rowToChunk(id, content, source, sid, metaStr)
	return &c, nil
}

// GetChunkWindow loads the target chunk's source-peers within the same
// session, sorts by start_offset, and greedily extends outward one
// neighbor at a time (alternating sides) while the running char total
// stays within max_chars; a side stops at its first neighbor that does not
// fit, so the result is contiguous. Result is sorted by position and always
// includes the target.
func (s *Store) GetChunkWindow(ctx context.Context, chunkID string, maxChars int, sessionID string) ([]StoredChunk, error) {
	if maxChars <= 0 {
		return nil, nil
	}

	target, err := s.GetChunk(ctx, chunkID)
	if err != nil {
		if coreconfig.Is(err, coreconfig.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}

	targetSession := sessionID
	if targetSession == "" {
		targetSession = target.SessionID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, content, source, session_id, metadata FROM rag_chunks WHERE session_id = ? AND source = ?`,
		targetSession, target.Source)
	if err != nil {
		return nil, coreconfig.Internal(err, "querying chunk window peers")
	}
	defer rows.Close()

	var chunks []StoredChunk
	for rows.Next() {
		var id, content, source, sid, metaStr string
		if err := rows.Scan(&id, &content, &source, &sid, &metaStr); err != nil {
			return nil, coreconfig.Internal(err, "scanning chunk window row")
		}
		chunks = append(chunks, rowToChunk(id, content, source, sid, metaStr))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].StartOffset() < chunks[j].StartOffset() })

	targetIdx := -1
	for i, c := range chunks {
		if c.ChunkID == target.ChunkID {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return []StoredChunk{*target}, nil
	}

	selected := map[int]bool{targetIdx: true}
	totalChars := len([]rune(chunks[targetIdx].Content))

	leftHasNext := targetIdx > 0
	left := targetIdx - 1
	right := targetIdx + 1

	for leftHasNext || right < len(chunks) {
		added := false

		if leftHasNext {
			chars := len([]rune(chunks[left].Content))
			if totalChars+chars <= maxChars {
				selected[left] = true
				totalChars += chars
				added = true
				leftHasNext = left > 0
				left--
			} else {
				leftHasNext = false
			}
		}

		if right < len(chunks) {
			chars := len([]rune(chunks[right].Content))
			if totalChars+chars <= maxChars {
				selected[right] = true
				totalChars += chars
				added = true
				right++
			} else {
				right = len(chunks)
			}
		}

		if !added {
			break
		}
	}

	indices := make([]int, 0, len(selected))
	for idx := range selected {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]StoredChunk, 0, len(indices))
	for _, idx := range indices {
		out = append(out, chunks[idx])
	}
	return out, nil
}

// DeleteSession removes all chunks for a session, returning the count deleted.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_chunks WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, coreconfig.Internal(err, "deleting session %s chunks", sessionID)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteChunk removes a single chunk, returning whether a row was deleted.
func (s *Store) DeleteChunk(ctx context.Context, chunkID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_chunks WHERE chunk_id = ?`, chunkID)
	if err != nil {
		return false, coreconfig.Internal(err, "deleting chunk %s", chunkID)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Count returns the number of chunks, optionally scoped to a session.
func (s *Store) Count(ctx context.Context, sessionID string) (int64, error) {
	query := `SELECT COUNT(*) FROM rag_chunks`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, coreconfig.Internal(err, "counting chunks")
	}
	return n, nil
}

// ReindexWithModel clears all chunks and records the chosen embedding model
// name. It does not re-embed historical content (see DESIGN.md's Open
// Question decision).
func (s *Store) ReindexWithModel(ctx context.Context, embeddingModel string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rag_chunks`); err != nil {
		return coreconfig.Internal(err, "clearing rag_chunks for reindex")
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rag_meta (key, value, updated_at) VALUES ('embedding_model', ?, ?)`,
		embeddingModel, now); err != nil {
		return coreconfig.Internal(err, "recording embedding model")
	}
	return nil
}
