package tool

import (
	"context"
	"encoding/json"
	"strings"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// SearchEngine performs an externally configured web search and returns
// hits ordered by engine rank.
type SearchEngine interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// WebSearch implements the web_search native tool.
type WebSearch struct {
	allowWebSearch bool
	engine         SearchEngine
}

// NewWebSearch constructs the web_search tool over a pluggable search
// engine backend.
func NewWebSearch(allowWebSearch bool, engine SearchEngine) *WebSearch {
	return &WebSearch{allowWebSearch: allowWebSearch, engine: engine}
}

func (w *WebSearch) Name() string        { return "native_search" }
func (w *WebSearch) Description() string { return "Search the web and return ranked results." }
func (w *WebSearch) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []string{"query"},
	}
}

// Call performs the search named by args["query"] (or "q"/"input").
func (w *WebSearch) Call(ctx context.Context, args map[string]any) (Result, error) {
	if !w.allowWebSearch {
		return Result{}, coreconfig.Forbidden("web search is disabled")
	}

	query := firstString(args, "query", "q", "input")
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, coreconfig.Validation("search query missing")
	}
	if w.engine == nil {
		return Result{}, coreconfig.Unavailable("no search engine configured")
	}

	results, err := w.engine.Search(ctx, query)
	if err != nil {
		return Result{}, coreconfig.Upstream(err, "search engine request failed")
	}
	return Result{Output: formatSearchResults(results), SearchResults: results}, nil
}

func formatSearchResults(results []SearchResult) string {
	buf, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return ""
	}
	return string(buf)
}

func firstString(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := args[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
