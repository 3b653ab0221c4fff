package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLMStudioDiscovererDiscover(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lmStudioV1Response{
			Data: []lmStudioV1Model{
				{ID: "llama-3-8b-instruct", Type: "llm", Architecture: "llama", MaxContextLen: 8192},
				{ID: "text-embedding-nomic", Type: "embeddings", Architecture: "bert"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	discoverer := LMStudioDiscoverer{BaseURL: srv.URL}
	found, err := discoverer.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("got %d models, want 2", len(found))
	}

	byID := map[string]DiscoveredModel{}
	for _, m := range found {
		byID[m.ID] = m
	}
	chat, ok := byID["lmstudio:llama-3-8b-instruct"]
	if !ok {
		t.Fatal("missing lmstudio:llama-3-8b-instruct")
	}
	if chat.Role != "text" || chat.ContextLength != 8192 {
		t.Fatalf("got %+v", chat)
	}

	embed, ok := byID["lmstudio:text-embedding-nomic"]
	if !ok {
		t.Fatal("missing lmstudio:text-embedding-nomic")
	}
	if embed.Role != "embedding" {
		t.Fatalf("got role %q, want embedding", embed.Role)
	}
}

func TestLMStudioDiscovererNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	discoverer := LMStudioDiscoverer{BaseURL: srv.URL}
	if _, err := discoverer.Discover(context.Background()); err == nil {
		t.Fatal("expected an error for non-200 response")
	}
}
