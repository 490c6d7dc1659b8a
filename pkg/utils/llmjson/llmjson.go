// Package llmjson pulls structured data out of free-form model replies.
package llmjson

import (
	"encoding/json"
	"strings"
)

// ExtractObject returns the first balanced {...} span in text. Braces inside
// JSON string literals are ignored. ok is false when no balanced object exists.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, found := matchObject(text, start); found {
			return text[start : end+1], true
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return "", false
}

func matchObject(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

// Parse extracts the first JSON object in text and decodes it into T. Every
// key in required must be present with a non-null value. On any failure the
// zero value and false are returned; a partially decoded value is never
// handed out.
func Parse[T any](text string, required ...string) (T, bool) {
	var zero T

	raw, ok := ExtractObject(text)
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, false
	}

	if len(required) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return zero, false
		}
		for _, key := range required {
			value, found := fields[key]
			if !found || string(value) == "null" {
				return zero, false
			}
		}
	}

	return v, true
}
