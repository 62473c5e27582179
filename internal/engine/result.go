package engine

import (
	"encoding/json"
	"strings"
)

// ResultKind discriminates what the engine actually returned.
type ResultKind int

const (
	// KindStructured means the payload parsed as a JSON object.
	KindStructured ResultKind = iota
	// KindRawText means the engine returned prose with no JSON object.
	KindRawText
	// KindUnknown means the payload was empty or unusable.
	KindUnknown
)

// Result is the tagged outcome of one engine call, resolved once at the
// boundary where the response body is first read. Callers switch on Kind
// instead of probing shapes.
type Result struct {
	Kind       ResultKind
	Structured json.RawMessage
	Raw        string
}

// ParseResult classifies raw model output. A well-formed JSON object (with
// or without surrounding prose) becomes Structured; any other non-empty
// text becomes RawText.
func ParseResult(content string) Result {
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{Kind: KindUnknown}
	}
	obj := extractJSONObject(content)
	if obj == "" {
		return Result{Kind: KindRawText, Raw: content}
	}
	if !json.Valid([]byte(obj)) {
		return Result{Kind: KindRawText, Raw: content}
	}
	return Result{Kind: KindStructured, Structured: json.RawMessage(obj), Raw: content}
}

// Decode unmarshals a structured result into v.
func (r Result) Decode(v any) error {
	return json.Unmarshal(r.Structured, v)
}

// extractJSONObject returns the first balanced top-level JSON object in
// input, respecting string literals and escapes.
func extractJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
