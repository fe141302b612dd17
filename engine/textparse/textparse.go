// Package textparse recovers structured JSON from raw model output.
//
// Models wrap JSON in markdown fences, prepend prose, or truncate objects.
// The parser tries direct unmarshaling first, then strips fences, then scans
// for the first balanced top-level object. Parsing never panics; failure
// yields a canonical error payload so callers can degrade instead of abort.
package textparse

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed indicates no JSON object could be recovered from the text.
var ErrParseFailed = errors.New("parse_failed")

// rawResponseLimit bounds how much of the original text is echoed back in
// the failure payload.
const rawResponseLimit = 500

var fenceRe = regexp.MustCompile("```(?:json)?\\s*")

// ParseStructuredResponse extracts a JSON object from model output.
//
// On success the decoded object is returned with a nil error. On failure the
// returned map is the canonical failure payload:
//
//	{"error": "parse_failed", "raw_response": <prefix>, "parsing_failed": true}
//
// and the error wraps ErrParseFailed. Callers that can substitute fallback
// content should check the error rather than the payload.
func ParseStructuredResponse(text string) (map[string]any, error) {
	cleaned := stripFences(text)

	var result map[string]any
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return result, nil
	}

	if obj, ok := extractBalancedObject(cleaned); ok {
		if err := json.Unmarshal([]byte(obj), &result); err == nil {
			return result, nil
		}
	}

	return FailurePayload(text), fmt.Errorf("no JSON object in response: %w", ErrParseFailed)
}

// ParseInto extracts a JSON object from model output and unmarshals it into v.
func ParseInto(text string, v any) error {
	cleaned := stripFences(text)

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	obj, ok := extractBalancedObject(cleaned)
	if !ok {
		return fmt.Errorf("no JSON object in response: %w", ErrParseFailed)
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("decode extracted object: %w (%w)", err, ErrParseFailed)
	}
	return nil
}

// FailurePayload builds the canonical parse-failure payload for raw text.
func FailurePayload(raw string) map[string]any {
	return map[string]any{
		"error":          "parse_failed",
		"raw_response":   truncate(raw, rawResponseLimit),
		"parsing_failed": true,
	}
}

// IsFailurePayload reports whether a decoded payload is the canonical
// parse-failure shape.
func IsFailurePayload(m map[string]any) bool {
	if m == nil {
		return false
	}
	failed, _ := m["parsing_failed"].(bool)
	return failed
}

func stripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// extractBalancedObject returns the first complete top-level {...} in text.
// The scan is string-aware: braces inside JSON strings do not count, and
// backslash escapes inside strings are honored.
func extractBalancedObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
