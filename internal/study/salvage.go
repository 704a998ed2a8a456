// Package study turns unreliable model replies into quizzes and flashcards
// and grades submitted quiz answers.
package study

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no stage of the salvage ladder yields JSON.
var ErrNoJSON = errors.New("no json payload in reply")

// Salvage decodes a model reply that is supposed to be JSON. It tries, in
// order: the whole reply; the span from the first '{' to the last '}'; that
// span with raw newlines inside strings escaped; the array under the first
// "questions" key. The first stage that decodes wins.
func Salvage(raw string) (any, error) {
	if v, ok := decode(raw); ok {
		return v, nil
	}

	candidate := raw
	if obj, ok := extractObject(raw); ok {
		if v, ok := decode(obj); ok {
			return v, nil
		}
		candidate = obj
	}

	if v, ok := decode(fixUnescapedNewlines(candidate)); ok {
		return v, nil
	}

	if arr, ok := extractQuestionsArray(raw); ok {
		return arr, nil
	}
	return nil, ErrNoJSON
}

// SalvageObject is Salvage restricted to JSON objects.
func SalvageObject(raw string) (map[string]any, bool) {
	v, err := Salvage(raw)
	if err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func decode(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

func extractObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// fixUnescapedNewlines escapes CR and LF that appear inside JSON string
// literals. Everything outside strings is copied as-is.
func fixUnescapedNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for _, r := range s {
		if inString {
			if r == '\n' || r == '\r' {
				b.WriteString(`\n`)
				escaped = false
				continue
			}
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
		} else if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

func extractQuestionsArray(raw string) ([]any, bool) {
	keyIdx := strings.Index(raw, `"questions"`)
	if keyIdx == -1 {
		return nil, false
	}
	open := strings.Index(raw[keyIdx:], "[")
	if open == -1 {
		return nil, false
	}
	open += keyIdx

	depth := 0
	for i := open; i < len(raw); i++ {
		switch raw[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				snippet := raw[open : i+1]
				for _, candidate := range []string{snippet, fixUnescapedNewlines(snippet)} {
					var arr []any
					if err := json.Unmarshal([]byte(candidate), &arr); err == nil && len(arr) > 0 {
						return arr, true
					}
				}
				return nil, false
			}
		}
	}
	return nil, false
}
