package models

import "strings"

var embeddingNameHints = []string{"embedding", "embed", "nomic-embed", "e5", "bge", "gte"}

// HasEmbeddingNameHint reports whether name's lowercased form contains a
// known embedding-model hint substring.
func HasEmbeddingNameHint(name string) bool {
	lowered := strings.ToLower(name)
	for _, hint := range embeddingNameHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

// ExpectedRoleForAssignment maps a role-assignment key ("embedding",
// "embedding:<id>", "text", "character", "character:<id>", "professional",
// "professional:<id>", "agent:<id>") to the model role it requires. An
// unrecognized key returns ok=false.
func ExpectedRoleForAssignment(roleKey string) (role string, ok bool) {
	normalized := strings.TrimSpace(roleKey)
	if normalized == "" {
		return "", false
	}

	if normalized == "embedding" || strings.HasPrefix(normalized, "embedding:") {
		return "embedding", true
	}

	if normalized == "text" ||
		normalized == "character" || strings.HasPrefix(normalized, "character:") ||
		normalized == "professional" || strings.HasPrefix(normalized, "professional:") ||
		strings.HasPrefix(normalized, "agent:") {
		return "text", true
	}

	return "", false
}

// InferRoleFromGGUFMetadata derives a model's role from its GGUF key-value
// metadata, falling back through general.type, embedding pooling presence,
// text-decoder structural hints, then the model's file name. Returns "" if
// no signal was found.
func InferRoleFromGGUFMetadata(modelName string, metadata map[string]any) string {
	if generalType, ok := metadata["general.type"].(string); ok {
		lowered := strings.ToLower(generalType)
		switch {
		case strings.Contains(lowered, "embedding"), strings.Contains(lowered, "embed"):
			return "embedding"
		case strings.Contains(lowered, "text"), strings.Contains(lowered, "causal"):
			return "text"
		}
	}

	for k, v := range metadata {
		if !strings.HasSuffix(k, ".pooling_type") {
			continue
		}
		if poolingIndicatesEmbedding(v) {
			return "embedding"
		}
	}

	for k := range metadata {
		if strings.HasSuffix(k, ".block_count") || strings.Contains(k, "attention.head_count") {
			return "text"
		}
	}

	if HasEmbeddingNameHint(modelName) {
		return "embedding"
	}

	return ""
}

func poolingIndicatesEmbedding(v any) bool {
	switch n := v.(type) {
	case float64:
		return n > 0
	case int64:
		return n > 0
	case uint32:
		return n > 0
	case int32:
		return n > 0
	case uint64:
		return n > 0
	case string:
		lowered := strings.ToLower(n)
		return strings.Contains(lowered, "mean") || strings.Contains(lowered, "cls") || strings.Contains(lowered, "last")
	default:
		return false
	}
}

var embeddingFamilies = []string{"bert", "nomic-bert", "clip"}
var embeddingCapabilityHints = []string{"embedding", "embed"}
var textCapabilityHints = []string{"completion", "chat", "generate"}

// OllamaModelDetails is the subset of /api/tags model detail fields the
// role-inference heuristic consults.
type OllamaModelDetails struct {
	Family  string
	Families []string
}

// DetermineOllamaRole infers an Ollama-served model's role, preferring GGUF
// metadata (when /api/show exposed model_info) over family/capability
// name-based heuristics.
func DetermineOllamaRole(modelName string, details OllamaModelDetails, capabilities []string, modelInfo map[string]any) string {
	if modelInfo != nil {
		if role := InferRoleFromGGUFMetadata(modelName, modelInfo); role != "" {
			return role
		}
	}

	family := strings.ToLower(details.Family)
	isEmbeddingFamily := false
	for _, ef := range embeddingFamilies {
		if family == ef {
			isEmbeddingFamily = true
			break
		}
		for _, f := range details.Families {
			if strings.ToLower(f) == ef {
				isEmbeddingFamily = true
				break
			}
		}
	}

	switch {
	case isEmbeddingFamily:
		return "embedding"
	case hasAnyHint(capabilities, embeddingCapabilityHints):
		return "embedding"
	case hasAnyHint(capabilities, textCapabilityHints):
		return "text"
	case HasEmbeddingNameHint(modelName):
		return "embedding"
	default:
		return "text"
	}
}

func hasAnyHint(values, hints []string) bool {
	for _, v := range values {
		lowered := strings.ToLower(v)
		for _, hint := range hints {
			if strings.Contains(lowered, hint) {
				return true
			}
		}
	}
	return false
}
