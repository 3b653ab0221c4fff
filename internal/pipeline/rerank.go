package pipeline

import (
	"context"
	"math"
	"sort"
)

// runWebSearch invokes the configured search engine for query and, when an
// embedding-rerank is enabled and at least two results came back, reorders
// them by cosine similarity of the query embedding against each result's
// "title\nsnippet" embedding.
func runWebSearch(ctx context.Context, cfg BuildConfig, query string) ([]SearchResult, error) {
	hits, err := cfg.Search.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{Title: h.Title, URL: h.URL, Snippet: h.Snippet}
	}

	if !cfg.RerankEnabled || len(out) < 2 || cfg.Embedder == nil {
		return out, nil
	}

	texts := make([]string, 0, len(out)+1)
	texts = append(texts, query)
	for _, r := range out {
		texts = append(texts, r.Title+"\n"+r.Snippet)
	}

	embeddings, err := cfg.Embedder.Embed(ctx, texts)
	if err != nil || len(embeddings) != len(texts) {
		return out, nil
	}
	queryVec := embeddings[0]

	type scored struct {
		result SearchResult
		score  float64
	}
	ranked := make([]scored, len(out))
	for i, r := range out {
		ranked[i] = scored{result: r, score: cosineSimilarity(queryVec, embeddings[i+1])}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	reordered := make([]SearchResult, len(ranked))
	for i, s := range ranked {
		reordered[i] = s.result
	}
	return reordered, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
