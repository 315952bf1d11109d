package plm

import (
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// The PLM returns field names in two casings depending on endpoint and
// server version ("guid" vs "Guid", "results" vs "Results"). All responses
// pass through this normalizer exactly once, so the rest of the codebase
// sees a single lower-first-letter variant.

// normalizeKey lowers the first rune of a field name.
func normalizeKey(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return key
	}
	return string(unicode.ToLower(r)) + key[size:]
}

// normalizeValue recursively normalizes map keys in a decoded JSON value.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[normalizeKey(k)] = normalizeValue(inner)
		}
		return out
	case []any:
		for i, inner := range val {
			val[i] = normalizeValue(inner)
		}
		return val
	default:
		return v
	}
}

// normalizeBody decodes raw response bytes and normalizes all field names.
func normalizeBody(data []byte) (any, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	return normalizeValue(decoded), nil
}

// decodeInto re-marshals a normalized value into a typed target.
func decodeInto(normalized any, target any) error {
	data, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeResults extracts the results array from a normalized payload and
// decodes each entry into T.
func decodeResults[T any](normalized any) ([]T, error) {
	var env struct {
		Results []T `json:"results"`
	}
	if err := decodeInto(normalized, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}
