package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxSegmentLength caps sanitized names to avoid filesystem limits.
const maxSegmentLength = 100

// pathUnsafeReplacer replaces filesystem-unsafe characters with safe alternatives.
var pathUnsafeReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeSegment converts a metadata value into a safe single path segment.
// Unsafe characters are replaced, parenthesized and bracketed content is
// removed, whitespace is collapsed, and the result is NFKC-normalized and
// capped in length. Returns "Unknown" when nothing usable remains.
func SanitizeSegment(name string) string {
	name = norm.NFKC.String(strings.TrimSpace(name))
	if name == "" {
		return "Unknown"
	}
	name = pathUnsafeReplacer.Replace(name)
	name = stripEnclosed(name, '(', ')')
	name = stripEnclosed(name, '[', ']')
	name = CollapseWhitespace(name)
	name = strings.Trim(name, ". ")
	if len(name) > maxSegmentLength {
		name = strings.TrimSpace(name[:maxSegmentLength])
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

// CollapseWhitespace reduces runs of whitespace to a single space.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// stripEnclosed removes non-nested open...close spans, unbalanced openers
// are kept as-is.
func stripEnclosed(value string, open, close rune) string {
	var b strings.Builder
	b.Grow(len(value))
	depth := 0
	start := 0
	for i, r := range value {
		switch r {
		case open:
			if depth == 0 {
				b.WriteString(value[start:i])
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 {
					start = i + len(string(r))
				}
			}
		}
	}
	if depth == 0 {
		b.WriteString(value[start:])
		return b.String()
	}
	return value
}
