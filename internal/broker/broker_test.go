package broker

import "testing"

func TestSanitizeModelKeyReplacesUnsafeChars(t *testing.T) {
	got := sanitizeModelKey("my model/v1.0")
	want := "my_model_v1_0"
	if got != want {
		t.Fatalf("sanitizeModelKey() = %q, want %q", got, want)
	}
}

func TestDecodeEmbeddingPayloadPreservesIndexOrder(t *testing.T) {
	raw := []byte(`{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`)

	got, err := decodeEmbeddingPayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if got[0][0] != 0.1 || got[1][0] != 0.3 {
		t.Fatalf("expected index-ordered embeddings, got %v", got)
	}
}

func TestModelRuntimeConfigWithDefaults(t *testing.T) {
	cfg := ModelRuntimeConfig{}.WithDefaults()
	if cfg.NCtx != defaultNCtx {
		t.Fatalf("expected default n_ctx %d, got %d", defaultNCtx, cfg.NCtx)
	}
	if cfg.NGPULayers != defaultNGPULayers {
		t.Fatalf("expected default n_gpu_layers %d, got %d", defaultNGPULayers, cfg.NGPULayers)
	}
}

func TestFindServerExecutableMissingRootReturnsFalse(t *testing.T) {
	if _, ok := findServerExecutable("/path/does/not/exist", "llama-server"); ok {
		t.Fatalf("expected no match for a nonexistent root")
	}
}
