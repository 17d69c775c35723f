// Package sanitize cleans generated and user-supplied text before it is placed
// into a document.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Inline returns text suitable for a single run or table cell: control
// characters are removed, line endings are normalized and every whitespace
// run collapses to a single space.
func Inline(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(stripControl(text)), " ")
}

// Block returns text that keeps its paragraph structure. Whitespace inside a
// line is collapsed, line breaks are kept and runs of blank lines fold into a
// single blank line.
func Block(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(stripControl(text), "\n")

	var b strings.Builder
	b.Grow(len(text))
	pendingBreak := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			pendingBreak = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if pendingBreak {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		pendingBreak = false
		b.WriteString(line)
	}
	return b.String()
}

// HasControl reports whether text still carries a character that Inline or
// Block would remove.
func HasControl(text string) bool {
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				return true
			}
			continue
		}
		if isForbidden(r) || r == '\r' {
			return true
		}
	}
	return false
}

// stripControl drops characters that cannot appear in WordprocessingML text,
// replaces invalid UTF-8 and converts CRLF and lone CR to LF.
func stripControl(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size

		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune(utf8.RuneError)
		case r == '\r':
			b.WriteByte('\n')
			if i < len(text) && text[i] == '\n' {
				i++
			}
		case isForbidden(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isForbidden covers NUL and the remaining C0 controls except tab, LF and CR,
// plus the two non-characters XML 1.0 rejects.
func isForbidden(r rune) bool {
	if r < 0x20 {
		return r != '\t' && r != '\n' && r != '\r'
	}
	return r == 0xFFFE || r == 0xFFFF
}
