package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OllamaDiscoverer lists models from a running Ollama server's /api/tags,
// then calls /api/show per model to pull capabilities and GGUF model_info
// for role inference.
type OllamaDiscoverer struct {
	BaseURL string
	Client  *http.Client
}

type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

type ollamaModel struct {
	Name    string             `json:"name"`
	Size    uint64             `json:"size"`
	Digest  string             `json:"digest"`
	Details ollamaModelDetails `json:"details"`
}

type ollamaModelDetails struct {
	Family           string   `json:"family"`
	Families         []string `json:"families"`
	ParameterSize    string   `json:"parameter_size"`
	QuantizationLevel string  `json:"quantization_level"`
	Format           string   `json:"format"`
}

type ollamaShowResponse struct {
	Template     string         `json:"template"`
	Parameters   string         `json:"parameters"`
	Capabilities []string       `json:"capabilities"`
	ModelInfo    map[string]any `json:"model_info"`
	Details      ollamaModelDetails `json:"details"`
}

func (d OllamaDiscoverer) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d OllamaDiscoverer) Discover(ctx context.Context) ([]DiscoveredModel, error) {
	var tags ollamaTagsResponse
	if err := d.getJSON(ctx, d.BaseURL+"/api/tags", &tags); err != nil {
		return nil, err
	}

	out := make([]DiscoveredModel, 0, len(tags.Models))
	for _, m := range tags.Models {
		show, err := d.show(ctx, m.Name)
		if err != nil {
			show = ollamaShowResponse{Details: m.Details}
		}

		role := DetermineOllamaRole(
			m.Name,
			OllamaModelDetails{Family: m.Details.Family, Families: m.Details.Families},
			show.Capabilities,
			show.ModelInfo,
		)
		stopTokens, temperature := parseOllamaParameters(show.Parameters)

		out = append(out, DiscoveredModel{
			ID:                 "ollama:" + m.Name,
			DisplayName:        m.Name,
			Role:               role,
			FileSize:           m.Size,
			Filename:           m.Name,
			Source:             "ollama",
			FilePath:           "ollama://" + m.Name,
			Loader:             "ollama",
			LoaderModelName:    m.Name,
			ParameterSize:      m.Details.ParameterSize,
			Quantization:       m.Details.QuantizationLevel,
			Architecture:       extractArchitecture(show.ModelInfo),
			ChatTemplate:       show.Template,
			StopTokens:         stopTokens,
			DefaultTemperature: temperature,
			Format:             m.Details.Format,
		})
	}
	return out, nil
}

func (d OllamaDiscoverer) show(ctx context.Context, name string) (ollamaShowResponse, error) {
	var resp ollamaShowResponse
	body, err := json.Marshal(map[string]string{"model": name})
	if err != nil {
		return resp, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/api/show", bytes.NewReader(body))
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := d.client().Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("ollama /api/show returned %d", httpResp.StatusCode)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (d OllamaDiscoverer) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama %s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func extractArchitecture(modelInfo map[string]any) string {
	if modelInfo == nil {
		return ""
	}
	if v, ok := modelInfo["general.architecture"].(string); ok {
		return v
	}
	return ""
}

// parseOllamaParameters parses the Modelfile-style "stop \"<tok>\"\ntemperature 0.2\n..."
// raw text returned by /api/show.
func parseOllamaParameters(raw string) ([]string, *float32) {
	if raw == "" {
		return nil, nil
	}
	var stopTokens []string
	var temperature *float32
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "stop":
			stopTokens = append(stopTokens, strings.Trim(strings.Join(fields[1:], " "), "\""))
		case "temperature":
			var t float32
			if _, err := fmt.Sscanf(fields[1], "%f", &t); err == nil {
				temperature = &t
			}
		}
	}
	return stopTokens, temperature
}
