// Package normalize recovers structured JSON values from free-text model output.
//
// It is a best-effort layer for untrusted generated text. Trusted structured
// input should be decoded with encoding/json directly.
package normalize

import (
	"encoding/json"
	"strings"
)

// Shape is the kind of top-level value a caller expects.
type Shape int

const (
	Object Shape = iota
	Array
)

func (s Shape) String() string {
	if s == Array {
		return "array"
	}
	return "object"
}

// Kind tags the outcome of Parse.
type Kind int

const (
	// Empty means the input held no text at all.
	Empty Kind = iota
	// Parsed means Value holds a decoded value of the requested shape.
	Parsed
	// Malformed means every recovery attempt failed.
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	default:
		return "empty"
	}
}

// Stage names the attempt that produced a parsed value.
type Stage string

const (
	StageDirect    Stage = "direct"
	StageCleaned   Stage = "cleaned"
	StageExtracted Stage = "extracted"
	StageRepaired  Stage = "repaired"
)

// Result is the tagged outcome of Parse.
type Result struct {
	Kind  Kind
	Shape Shape
	Stage Stage
	Value any
}

// OK reports whether a value of the requested shape was recovered.
func (r Result) OK() bool {
	return r.Kind == Parsed
}

// Object returns the parsed mapping, or an empty one when nothing was parsed.
func (r Result) Object() map[string]any {
	if obj, ok := r.Value.(map[string]any); ok && r.OK() {
		return obj
	}
	return map[string]any{}
}

// Array returns the parsed sequence, or an empty one when nothing was parsed.
func (r Result) Array() []any {
	if arr, ok := r.Value.([]any); ok && r.OK() {
		return arr
	}
	return []any{}
}

var fences = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// Parse recovers a value of the given shape from raw model output. It never
// fails: callers inspect Result.Kind or use Object/Array, which fall back to
// empty values.
func Parse(raw string, shape Shape) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Kind: Empty, Shape: shape}
	}

	if v, ok := decode(text, shape); ok {
		return Result{Kind: Parsed, Shape: shape, Stage: StageDirect, Value: v}
	}

	cleaned := strings.TrimSpace(clean(text))
	if cleaned == "" {
		return Result{Kind: Empty, Shape: shape}
	}

	if v, ok := decode(cleaned, shape); ok {
		return Result{Kind: Parsed, Shape: shape, Stage: StageCleaned, Value: v}
	}

	open, closing := byte('{'), byte('}')
	if shape == Array {
		open, closing = '[', ']'
	}

	for _, candidate := range candidates(cleaned, open, closing) {
		if v, ok := decode(candidate, shape); ok {
			return Result{Kind: Parsed, Shape: shape, Stage: StageExtracted, Value: v}
		}

		repaired := repair(candidate)
		if repaired == candidate {
			continue
		}
		if v, ok := decode(repaired, shape); ok {
			return Result{Kind: Parsed, Shape: shape, Stage: StageRepaired, Value: v}
		}
	}

	return Result{Kind: Malformed, Shape: shape}
}

func decode(text string, shape Shape) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}

	switch shape {
	case Array:
		arr, ok := v.([]any)
		return arr, ok
	default:
		obj, ok := v.(map[string]any)
		return obj, ok
	}
}

// clean drops code fences and C0/C1 control characters. Tabs and line breaks
// become spaces so that words on separate lines stay separated.
func clean(text string) string {
	text = fences.Replace(text)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case r < 0x20 || (r >= 0x7f && r <= 0x9f):
			return -1
		default:
			return r
		}
	}, text)
}

// literal tracks whether a byte-wise scan is inside a JSON string literal.
type literal struct {
	inString bool
	escaped  bool
}

// step consumes c and reports whether it belongs to a string literal,
// quotes included.
func (l *literal) step(c byte) bool {
	if l.inString {
		switch {
		case l.escaped:
			l.escaped = false
		case c == '\\':
			l.escaped = true
		case c == '"':
			l.inString = false
		}
		return true
	}
	if c == '"' {
		l.inString = true
		return true
	}
	return false
}

// repair drops trailing commas before a closing bracket and quotes bare
// object keys. String literals are copied unchanged.
func repair(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 8)

	var lit literal
	for i := 0; i < len(text); i++ {
		c := text[i]
		if lit.step(c) {
			b.WriteByte(c)
			continue
		}

		switch c {
		case ',':
			next := skipSpace(text, i+1)
			if next < len(text) && (text[next] == '}' || text[next] == ']') {
				continue
			}
			b.WriteByte(c)
			i = quoteKey(&b, text, i+1)
		case '{':
			b.WriteByte(c)
			i = quoteKey(&b, text, i+1)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// quoteKey writes a quoted copy of the bare key starting at pos, if there is
// one, and returns the index of the last byte consumed.
func quoteKey(b *strings.Builder, text string, pos int) int {
	from := skipSpace(text, pos)
	to := from
	for to < len(text) && isKeyByte(text[to], to == from) {
		to++
	}
	if to == from {
		return pos - 1
	}
	if colon := skipSpace(text, to); colon >= len(text) || text[colon] != ':' {
		return pos - 1
	}

	b.WriteString(text[pos:from])
	b.WriteByte('"')
	b.WriteString(text[from:to])
	b.WriteByte('"')
	return to - 1
}

func isKeyByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func skipSpace(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i++
	}
	return i
}

// candidates returns balanced open/close substrings in textual order, outer
// values before the values nested in them. Delimiters inside string literals
// are ignored. Each open byte starts its own scan, so a long run of
// unbalanced openers costs O(n^2).
func candidates(text string, open, closing byte) []string {
	var found []string
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}

		if end := matching(text, i, open, closing); end >= 0 {
			found = append(found, text[i:end+1])
		}
	}
	return found
}

func matching(text string, start int, open, closing byte) int {
	depth := 0
	var lit literal

	for i := start; i < len(text); i++ {
		c := text[i]
		if lit.step(c) {
			continue
		}

		switch c {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
