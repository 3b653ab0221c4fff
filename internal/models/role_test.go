package models

import "testing"

func TestExpectedRoleForAssignment(t *testing.T) {
	cases := []struct {
		key      string
		wantRole string
		wantOK   bool
	}{
		{"embedding", "embedding", true},
		{"embedding:primary", "embedding", true},
		{"text", "text", true},
		{"character", "text", true},
		{"character:alice", "text", true},
		{"professional:therapist", "text", true},
		{"agent:researcher", "text", true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, c := range cases {
		role, ok := ExpectedRoleForAssignment(c.key)
		if role != c.wantRole || ok != c.wantOK {
			t.Errorf("ExpectedRoleForAssignment(%q) = (%q, %v), want (%q, %v)", c.key, role, ok, c.wantRole, c.wantOK)
		}
	}
}

func TestInferRoleFromGGUFMetadataGeneralType(t *testing.T) {
	role := InferRoleFromGGUFMetadata("some-model", map[string]any{"general.type": "embedding"})
	if role != "embedding" {
		t.Fatalf("got role %q, want embedding", role)
	}
}

func TestInferRoleFromGGUFMetadataPoolingType(t *testing.T) {
	role := InferRoleFromGGUFMetadata("some-model", map[string]any{"bert.pooling_type": "mean"})
	if role != "embedding" {
		t.Fatalf("got role %q, want embedding", role)
	}
}

func TestInferRoleFromGGUFMetadataStructuralHint(t *testing.T) {
	role := InferRoleFromGGUFMetadata("some-model", map[string]any{"llama.block_count": uint32(32)})
	if role != "text" {
		t.Fatalf("got role %q, want text", role)
	}
}

func TestInferRoleFromGGUFMetadataNameHintFallback(t *testing.T) {
	role := InferRoleFromGGUFMetadata("nomic-embed-text-v1.5", map[string]any{})
	if role != "embedding" {
		t.Fatalf("got role %q, want embedding", role)
	}
}

func TestInferRoleFromGGUFMetadataNoSignal(t *testing.T) {
	role := InferRoleFromGGUFMetadata("mystery-model", map[string]any{})
	if role != "" {
		t.Fatalf("got role %q, want empty", role)
	}
}

func TestDetermineOllamaRolePrefersGGUFMetadata(t *testing.T) {
	role := DetermineOllamaRole("mystery", OllamaModelDetails{Family: "llama"}, nil, map[string]any{"general.type": "embedding"})
	if role != "embedding" {
		t.Fatalf("got role %q, want embedding", role)
	}
}

func TestDetermineOllamaRoleFamilyHeuristic(t *testing.T) {
	role := DetermineOllamaRole("mystery", OllamaModelDetails{Family: "bert"}, nil, nil)
	if role != "embedding" {
		t.Fatalf("got role %q, want embedding", role)
	}
}

func TestDetermineOllamaRoleDefaultsToText(t *testing.T) {
	role := DetermineOllamaRole("llama3", OllamaModelDetails{Family: "llama"}, []string{"completion"}, nil)
	if role != "text" {
		t.Fatalf("got role %q, want text", role)
	}
}
