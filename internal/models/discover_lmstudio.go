package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LMStudioDiscoverer lists models from a running LM Studio server's
// /api/v1/models endpoint.
type LMStudioDiscoverer struct {
	BaseURL string
	Client  *http.Client
}

type lmStudioV1Response struct {
	Data []lmStudioV1Model `json:"data"`
}

type lmStudioV1Model struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Type          string `json:"type"`
	Publisher     string `json:"publisher"`
	Architecture  string `json:"arch"`
	Quantization  string `json:"quantization"`
	State         string `json:"state"`
	MaxContextLen uint64 `json:"max_context_length"`
	ContextLength uint64 `json:"loaded_context_length"`
}

func (d LMStudioDiscoverer) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d LMStudioDiscoverer) Discover(ctx context.Context) ([]DiscoveredModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/api/v1/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lm studio /api/v1/models returned %d", resp.StatusCode)
	}

	var parsed lmStudioV1Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]DiscoveredModel, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		role := lmStudioRole(m)
		contextLen := m.ContextLength
		if contextLen == 0 {
			contextLen = m.MaxContextLen
		}
		out = append(out, DiscoveredModel{
			ID:              "lmstudio:" + m.ID,
			DisplayName:     m.ID,
			Role:            role,
			Filename:        m.ID,
			Source:          "lmstudio",
			FilePath:        "lmstudio://" + m.ID,
			Loader:          "lmstudio",
			LoaderModelName: m.ID,
			Publisher:       m.Publisher,
			Architecture:    m.Architecture,
			Quantization:    m.Quantization,
			ContextLength:   contextLen,
			Format:          "gguf",
		})
	}
	return out, nil
}

// lmStudioRole infers role from LM Studio's own "type" classification
// ("embeddings" vs "llm"), falling back to a name hint.
func lmStudioRole(m lmStudioV1Model) string {
	switch strings.ToLower(m.Type) {
	case "embeddings", "embedding":
		return "embedding"
	case "llm", "vlm":
		return "text"
	}
	if HasEmbeddingNameHint(m.ID) {
		return "embedding"
	}
	return "text"
}
