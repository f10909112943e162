// Package text provides text normalization utilities for speech synthesis.
//
// Synthesizers and the remote preview endpoint both behave better on flat,
// plainly punctuated text, so summaries and scripts pass through here before
// being spoken.
package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Regex patterns for text normalization.
const (
	whitespaceRegexPattern = `\s+`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsisChar = "…"
	ellipsis     = "..."
	hyphen       = "-"
	space        = " "
)

// Truncation marker appended when text is cut at the preview cap.
const truncationMarker = "..."

var whitespacePattern = regexp.MustCompile(whitespaceRegexPattern)

var punctuationReplacer = strings.NewReplacer(
	emDash, hyphen,
	enDash, hyphen,
	figureDash, hyphen,
	ellipsisChar, ellipsis,
)

// Normalize flattens typographic punctuation and collapses all whitespace
// runs to single spaces. Empty input stays empty.
func Normalize(text string) string {
	if text == "" {
		return text
	}

	normalized := punctuationReplacer.Replace(text)
	normalized = whitespacePattern.ReplaceAllString(normalized, space)

	return strings.TrimSpace(normalized)
}

// TruncateForPreview cuts text to at most limit characters, rune-safe,
// marking the cut. Text within the limit is returned unchanged. A
// non-positive limit returns the text unchanged.
func TruncateForPreview(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)

	keep := limit - utf8.RuneCountInString(truncationMarker)
	if keep < 0 {
		keep = 0
	}

	return string(runes[:keep]) + truncationMarker
}
