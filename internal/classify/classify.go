// Package classify partitions generated memo text into its semantic sections:
// subject line, body paragraphs, bullets and closing clause.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/nfa-builder/internal/sanitize"
	"github.com/jonathan/nfa-builder/internal/types"
)

// DefaultConclusion is used when no block in the text reads as a closing clause.
const DefaultConclusion = "The above proposal is submitted for approval."

// DefaultMaxBullets is the bullet count memos are designed around.
const DefaultMaxBullets = 3

// BulletGlyph is the canonical bullet every recognized glyph is normalized to.
const BulletGlyph = "•"

const fallbackBodyTemplate = "Request for approval regarding %s. This proposal requires administrative approval. The objective is successful event execution."

var placeholderBullets = []string{
	"Key requirements must be met for approval",
	"Important details will be outlined",
	"Financial details provided in table",
}

// Options configures a Classifier.
type Options struct {
	Phrases Phrases
	// MaxBullets caps the bullet list; zero keeps every bullet.
	MaxBullets int
}

// DefaultOptions returns the built-in phrase lists and bullet cap.
func DefaultOptions() Options {
	return Options{Phrases: DefaultPhrases(), MaxBullets: DefaultMaxBullets}
}

// Classifier splits raw text into ParsedSections. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct {
	conclusionRe *regexp.Regexp
	maxBullets   int
}

// New creates a Classifier. Empty phrase lists fall back to the defaults.
func New(opts Options) *Classifier {
	phrases := DefaultPhrases().Merge(opts.Phrases)
	maxBullets := opts.MaxBullets
	if maxBullets < 0 {
		maxBullets = 0
	}
	return &Classifier{
		conclusionRe: phraseRegexp(phrases.union()),
		maxBullets:   maxBullets,
	}
}

// IsConclusionLike reports whether block contains any closing-clause signal
// or fragment phrase as whole words. Case and the whitespace between words
// are ignored.
func (c *Classifier) IsConclusionLike(block string) bool {
	return c.conclusionRe != nil && c.conclusionRe.MatchString(block)
}

// phraseRegexp compiles phrases into one case-insensitive alternation. A
// phrase edge that is a word character must sit on a word boundary, so "gst"
// matches "GST bills" but not "amongst".
func phraseRegexp(phrases []string) *regexp.Regexp {
	alts := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alt := strings.Join(words, `\s+`)
		if isWordByte(phrase[0]) {
			alt = `\b` + alt
		}
		if isWordByte(phrase[len(phrase)-1]) {
			alt += `\b`
		}
		alts = append(alts, alt)
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Classify partitions raw into sections. subject and summary are the original
// request values, used when the text is missing a subject or a body.
func (c *Classifier) Classify(raw, subject, summary string, wantBullets bool) types.ParsedSections {
	blocks := SplitBlocks(raw)

	var sections types.ParsedSections
	var candidates []string

	if len(blocks) == 0 {
		sections.SubjectLine = types.SubjectMarker + " " + sanitize.Inline(subject)
	} else {
		first, rest, _ := strings.Cut(blocks[0], "\n")
		sections.SubjectLine = subjectLine(first, subject)
		if rest = strings.TrimSpace(rest); rest != "" {
			candidates = append(candidates, rest)
		}
		candidates = append(candidates, blocks[1:]...)
	}

	sections.Conclusion = DefaultConclusion
	for i := len(candidates) - 1; i >= 0; i-- {
		if c.IsConclusionLike(candidates[i]) {
			sections.Conclusion = sanitize.Inline(candidates[i])
			break
		}
	}

	for _, block := range candidates {
		if c.IsConclusionLike(block) || HasSubjectMarker(block) {
			continue
		}
		body, bullets := splitBullets(block)
		sections.BodyParagraphs = append(sections.BodyParagraphs, body...)
		if wantBullets {
			sections.Bullets = append(sections.Bullets, bullets...)
		} else {
			sections.BodyParagraphs = append(sections.BodyParagraphs, bullets...)
		}
	}

	if c.maxBullets > 0 && len(sections.Bullets) > c.maxBullets {
		sections.Bullets = sections.Bullets[:c.maxBullets]
	}

	if len(sections.BodyParagraphs) == 0 {
		sections.BodyParagraphs = []string{FallbackBody(summary)}
		if wantBullets && len(sections.Bullets) == 0 {
			sections.Bullets = append([]string(nil), placeholderBullets...)
		}
	}

	return sections
}

// FallbackBody is the templated body sentence used when the text has no usable
// body.
func FallbackBody(summary string) string {
	return fmt.Sprintf(fallbackBodyTemplate, sanitize.Inline(summary))
}

// SplitBlocks sanitizes raw and splits it on blank lines into trimmed,
// non-empty blocks. Markdown emphasis markers are removed.
func SplitBlocks(raw string) []string {
	cleaned := sanitize.Block(stripMarkdown(raw))
	if cleaned == "" {
		return nil
	}
	parts := strings.Split(cleaned, "\n\n")
	blocks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			blocks = append(blocks, p)
		}
	}
	return blocks
}

// subjectLine labels line as the subject, falling back to the request subject
// when the line carries only the label.
func subjectLine(line, requestSubject string) string {
	line = sanitize.Inline(line)
	value := line
	if HasSubjectMarker(line) {
		value = strings.TrimSpace(line[len(types.SubjectMarker):])
	}
	if value == "" {
		value = sanitize.Inline(requestSubject)
	}
	return types.SubjectMarker + " " + value
}

// HasSubjectMarker reports whether s starts with the subject label, ignoring
// case and leading whitespace.
func HasSubjectMarker(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= len(types.SubjectMarker) && strings.EqualFold(s[:len(types.SubjectMarker)], types.SubjectMarker)
}

// splitBullets walks block line by line. Lines that start with a bullet glyph
// become bullets; consecutive other lines are joined into body paragraphs.
func splitBullets(block string) (body, bullets []string) {
	var stray []string
	flush := func() {
		if len(stray) > 0 {
			body = append(body, sanitize.Inline(strings.Join(stray, " ")))
			stray = nil
		}
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if text, ok := bulletText(line); ok {
			flush()
			if text != "" {
				bullets = append(bullets, text)
			}
			continue
		}
		stray = append(stray, line)
	}
	flush()
	return body, bullets
}

// bulletText strips a leading bullet glyph. "•" always counts; "-" and "*"
// count only when followed by whitespace so hyphenated or starred words are
// left alone.
func bulletText(line string) (string, bool) {
	r, size := utf8.DecodeRuneInString(line)
	switch r {
	case '•', '●', '▪':
	case '-', '*':
		next, _ := utf8.DecodeRuneInString(line[size:])
		if size == len(line) || !unicode.IsSpace(next) {
			return "", false
		}
	default:
		return "", false
	}
	return sanitize.Inline(line[size:]), true
}

// stripMarkdown removes bold markers and heading hashes that models add around
// labels such as "**Subject:**".
func stripMarkdown(raw string) string {
	raw = strings.ReplaceAll(raw, "**", "")
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = strings.TrimLeft(trimmed, "# ")
		}
	}
	return strings.Join(lines, "\n")
}
