// Package typeutil provides safe type assertion helpers for working with
// decoded model output. LLM responses arrive as map[string]any after JSON
// parsing; these helpers extract typed values without panicking on the
// shapes models actually produce (numbers as strings, []any for lists).
package typeutil

import (
	"strconv"
	"strings"
)

// SafeString safely asserts value to string.
func SafeString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// SafeStringDefault returns the string value or the default.
func SafeStringDefault(value any, defaultVal string) string {
	if s, ok := SafeString(value); ok && s != "" {
		return s
	}
	return defaultVal
}

// SafeInt safely asserts value to int.
// Also handles float64 (common from JSON unmarshaling).
func SafeInt(value any) (int, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// SafeFloat64 safely asserts value to float64.
// Also handles int types.
func SafeFloat64(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

// SafeFloat64Default returns the float64 value or the default.
func SafeFloat64Default(value any, defaultVal float64) float64 {
	if f, ok := SafeFloat64(value); ok {
		return f
	}
	return defaultVal
}

// Score extracts a numeric score from a value that may be a JSON number or
// a quoted string ("8.5", "9.3/10", "93%"). Models frequently quote scores.
// Returns the score and true, or 0 and false if no number can be recovered.
func Score(value any) (float64, bool) {
	if f, ok := SafeFloat64(value); ok {
		return f, true
	}
	s, ok := SafeString(value)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	if idx := strings.IndexByte(s, '/'); idx > 0 {
		s = s[:idx]
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SafeBool safely asserts value to bool.
// Also handles the string forms models produce ("true", "false").
func SafeBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// SafeBoolDefault returns the bool value or the default.
func SafeBoolDefault(value any, defaultVal bool) bool {
	if b, ok := SafeBool(value); ok {
		return b
	}
	return defaultVal
}

// SafeMapStringAny safely asserts value to map[string]any.
func SafeMapStringAny(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}

// SafeStringSlice safely asserts value to []string.
// Also handles []any containing strings and skips non-string items.
func SafeStringSlice(value any) ([]string, bool) {
	if value == nil {
		return nil, false
	}
	if s, ok := value.([]string); ok {
		return s, true
	}
	anySlice, ok := value.([]any)
	if !ok {
		return nil, false
	}
	result := make([]string, 0, len(anySlice))
	for _, item := range anySlice {
		if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
			result = append(result, str)
		}
	}
	return result, true
}

// SafeStringSliceDefault returns the non-empty []string value or the default.
func SafeStringSliceDefault(value any, defaultVal []string) []string {
	if s, ok := SafeStringSlice(value); ok && len(s) > 0 {
		return s
	}
	return defaultVal
}

// GetNestedValue gets a nested value from a map using a dot-separated path.
func GetNestedValue(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	current := any(data)
	for _, key := range strings.Split(path, ".") {
		if key == "" {
			continue
		}
		m, ok := SafeMapStringAny(current)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetNestedString gets a nested string value from a map.
func GetNestedString(data map[string]any, path string) (string, bool) {
	v, ok := GetNestedValue(data, path)
	if !ok {
		return "", false
	}
	return SafeString(v)
}

// GetNestedStringSlice gets a nested []string value from a map.
func GetNestedStringSlice(data map[string]any, path string) ([]string, bool) {
	v, ok := GetNestedValue(data, path)
	if !ok {
		return nil, false
	}
	return SafeStringSlice(v)
}
