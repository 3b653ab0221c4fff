package config

import "strings"

// sensitiveSubstrings are lowercased substrings that mark a config key as
// holding a secret. whitelist overrides a substring match for keys that
// merely mention "token" in a non-secret sense (token counts/budgets).
var sensitiveSubstrings = []string{
	"api_key", "secret", "password", "_token", "token_", "credential",
	"private_key", "auth_", "_auth", "oauth", "jwt", "access_key",
	"client_id", "client_secret", "access_token", "refresh_token",
	"auth_token", "bearer",
}

var whitelistedKeys = map[string]bool{
	"max_tokens":    true,
	"total_tokens":  true,
	"input_tokens":  true,
	"output_tokens": true,
	"token_count":   true,
	"tokenizer":     true,
	"tokens":        true,
}

const redactedPlaceholder = "***REDACTED***"

// IsSensitiveKey reports whether a config key name should be treated as a
// secret field.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if whitelistedKeys[lower] {
		return false
	}
	for _, sub := range sensitiveSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Redact walks a decoded JSON/YAML tree (maps, slices, scalars) and replaces
// the value of every sensitive key with a placeholder. It is idempotent:
// Redact(Redact(v)) == Redact(v), since a value already equal to the
// placeholder stays the placeholder.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	default:
		return v
	}
}

// Restore reconstructs the original tree from a redacted tree plus the
// original, by walking both in lockstep and substituting original values
// back wherever the redacted tree holds the placeholder. restore(redact(v), v) == v.
func Restore(redacted, original any) any {
	redMap, redIsMap := redacted.(map[string]any)
	origMap, origIsMap := original.(map[string]any)
	if redIsMap && origIsMap {
		out := make(map[string]any, len(redMap))
		for k, rv := range redMap {
			ov, ok := origMap[k]
			if !ok {
				out[k] = rv
				continue
			}
			if s, isStr := rv.(string); isStr && s == redactedPlaceholder {
				out[k] = ov
				continue
			}
			out[k] = Restore(rv, ov)
		}
		return out
	}

	redSlice, redIsSlice := redacted.([]any)
	origSlice, origIsSlice := original.([]any)
	if redIsSlice && origIsSlice && len(redSlice) == len(origSlice) {
		out := make([]any, len(redSlice))
		for i := range redSlice {
			out[i] = Restore(redSlice[i], origSlice[i])
		}
		return out
	}

	return original
}
