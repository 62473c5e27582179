package normalize

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// nullTokens are cell values that mean "no content" regardless of casing.
var nullTokens = map[string]struct{}{
	"":     {},
	"n/a":  {},
	"na":   {},
	"none": {},
	"-":    {},
	"nan":  {},
}

// Normalize cleans a single spreadsheet cell into canonical text: HTML-like
// tags removed, runs of whitespace collapsed, recognized null tokens reduced
// to the empty string. Idempotent.
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = tagPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if IsNullToken(text) {
		return ""
	}
	return text
}

// IsNullToken reports whether the trimmed value is one of the recognized
// no-content markers.
func IsNullToken(value string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// FormatSection renders a labeled section line, or "" when the content
// normalizes to nothing. Callers filter empties so optional fields disappear
// without leaving blank lines.
func FormatSection(label, content string) string {
	clean := Normalize(content)
	if clean == "" {
		return ""
	}
	return label + ": " + clean
}
