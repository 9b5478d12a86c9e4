// Package jsonx recovers JSON objects from unreliable language-model
// output. Models asked to "respond with JSON only" routinely wrap the
// payload in prose or markdown fences, or emit near-JSON with trailing
// commas, single quotes, or unquoted keys. Extract runs a fixed cascade
// of repair strategies and fails only when every strategy fails.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no strategy can recover a JSON object.
var ErrNoJSON = errors.New("jsonx: no recoverable JSON object found")

// A strategy transforms raw model output into a candidate JSON document.
// Strategies are pure and independently testable; Extract tries them in
// order and the first candidate that parses as an object wins.
type strategy struct {
	name string
	fn   func(string) (string, bool)
}

var strategies = []strategy{
	{"direct", direct},
	{"braces", firstBraceSpan},
	{"repair", repairSyntax},
	{"scenarios-array", scenariosArray},
}

// Extract recovers a JSON object from raw model output.
func Extract(raw string) (map[string]any, error) {
	var lastErr error
	for _, s := range strategies {
		candidate, ok := s.fn(raw)
		if !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			lastErr = fmt.Errorf("strategy %s: %w", s.name, err)
			continue
		}
		return obj, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w (%v)", ErrNoJSON, lastErr)
	}
	return nil, ErrNoJSON
}

// ExtractInto recovers a JSON object and decodes it into v.
func ExtractInto(raw string, v any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// direct passes the trimmed text through unchanged.
func direct(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// firstBraceSpan cuts the span from the first '{' to the last '}'.
// Greedy on purpose: preambles and epilogues go, nested objects stay.
func firstBraceSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

var (
	fenceRe        = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	bareObjectKeys = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// repairSyntax applies heuristic cleanup: strip a fenced code block,
// trim to the outermost braces, drop trailing commas, rewrite
// single-quoted strings to double-quoted, and quote bare object keys.
func repairSyntax(raw string) (string, bool) {
	text := raw
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	span, ok := firstBraceSpan(text)
	if !ok {
		return "", false
	}

	span = normalizeQuotes(span)
	span = trailingComma.ReplaceAllString(span, "$1")
	span = bareObjectKeys.ReplaceAllString(span, `$1"$2":`)
	return span, true
}

// normalizeQuotes rewrites single-quoted JSON strings to double-quoted
// ones, escaping any embedded double quotes. Apostrophes inside
// double-quoted strings are left alone.
func normalizeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\' && (inDouble || inSingle):
			b.WriteRune(r)
			escaped = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteRune(r)
		case r == '"' && inSingle:
			b.WriteString(`\"`)
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteRune('"')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var scenariosKeyRe = regexp.MustCompile(`"scenarios"\s*:\s*\[`)

// scenariosArray salvages just the scenarios array from otherwise
// broken output and reassembles it as {"scenarios": [...]}.
// Both the repaired text and the raw text are candidates: the repair
// step's brace trimming can truncate an array the raw text still holds
// in full.
func scenariosArray(raw string) (string, bool) {
	candidates := []string{raw}
	if repaired, ok := repairSyntax(raw); ok {
		candidates = []string{repaired, raw}
	}
	for _, text := range candidates {
		if body, ok := matchScenariosArray(text); ok {
			return `{"scenarios": ` + body + `}`, true
		}
	}
	return "", false
}

// matchScenariosArray finds the "scenarios" key and bracket-matches its
// array body, ignoring brackets inside string literals.
func matchScenariosArray(text string) (string, bool) {
	loc := scenariosKeyRe.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	start := loc[1] - 1
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}
