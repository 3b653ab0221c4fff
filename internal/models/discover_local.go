package models

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalGGUFDiscoverer walks a directory tree for ".gguf" files and reads
// each one's key-value metadata to infer its role, architecture, and
// context length.
type LocalGGUFDiscoverer struct {
	Root string
}

func (d LocalGGUFDiscoverer) Discover(ctx context.Context) ([]DiscoveredModel, error) {
	var out []DiscoveredModel
	err := filepath.WalkDir(d.Root, func(path string, entry os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole walk
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".gguf") {
			return nil
		}

		info, statErr := entry.Info()
		if statErr != nil {
			return nil
		}

		metadata, metaErr := ReadGGUFMetadata(path)
		if metaErr != nil {
			return nil // an unreadable or malformed file is skipped, not fatal
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		role := InferRoleFromGGUFMetadata(name, metadata)
		if role == "" {
			role = "text"
		}

		out = append(out, DiscoveredModel{
			ID:           "local:" + name,
			DisplayName:  name,
			Role:         role,
			FileSize:     uint64(info.Size()),
			Filename:     filepath.Base(path),
			Source:       "local",
			FilePath:     path,
			Loader:       "local",
			Architecture: stringMetadata(metadata, "general.architecture"),
			ContextLength: contextLength(metadata),
			Format:       "gguf",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func stringMetadata(metadata map[string]any, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

// contextLength looks for the first "*.context_length" key, matching the
// llama.cpp GGUF naming convention of prefixing architecture-specific keys
// with the architecture name.
func contextLength(metadata map[string]any) uint64 {
	for k, v := range metadata {
		if !strings.HasSuffix(k, ".context_length") {
			continue
		}
		switch n := v.(type) {
		case uint32:
			return uint64(n)
		case uint64:
			return n
		case int32:
			if n > 0 {
				return uint64(n)
			}
		case int64:
			if n > 0 {
				return uint64(n)
			}
		}
	}
	return 0
}
