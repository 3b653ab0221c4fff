package mcptool

import (
	"encoding/json"
	"strings"
)

func joinNonEmpty(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// jsonMarshalThenUnmarshal round-trips v through JSON to obtain a clean
// map[string]any, the same trick mcptoolset.convertSchema uses.
func jsonMarshalThenUnmarshal(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
