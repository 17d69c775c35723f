// Package preview renders classified memo sections as HTML for the web
// client.
package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jonathan/nfa-builder/internal/sanitize"
	"github.com/jonathan/nfa-builder/internal/types"
)

// Renderer converts memo sections to HTML. Raw HTML in memo text is never
// passed through.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with GitHub-style tables enabled.
func New() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.Table))}
}

// Memo is the content shown in a preview.
type Memo struct {
	Sections    types.ParsedSections
	Conclusion  string
	Table       types.TableData
	WantBullets bool
}

// HTML renders memo.
func (r *Renderer) HTML(memo Memo) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(Markdown(memo)), &buf); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.String(), nil
}

// Markdown lays memo out as markdown: bold subject label, body paragraphs,
// a bullet list, the table and the conclusion.
func Markdown(memo Memo) string {
	var sb strings.Builder

	sb.WriteString("**")
	sb.WriteString(types.SubjectMarker)
	sb.WriteString("** ")
	sb.WriteString(Escape(memo.Sections.SubjectValue()))
	sb.WriteString("\n\n")

	for _, p := range memo.Sections.BodyParagraphs {
		sb.WriteString(Escape(p))
		sb.WriteString("\n\n")
	}

	if memo.WantBullets && len(memo.Sections.Bullets) > 0 {
		for _, b := range memo.Sections.Bullets {
			sb.WriteString("- ")
			sb.WriteString(Escape(b))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if table := tableMarkdown(memo.Table); table != "" {
		sb.WriteString(table)
		sb.WriteString("\n")
	}

	if c := strings.TrimSpace(memo.Conclusion); c != "" {
		sb.WriteString(Escape(c))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Escape makes text literal in markdown by backslash-escaping every ASCII
// punctuation character.
func Escape(text string) string {
	text = sanitize.Inline(text)
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r < 0x80 && strings.ContainsRune("\\`*_{}[]()<>#+-.!|~&\"'", r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func tableMarkdown(t types.TableData) string {
	columns := t.Columns()
	if columns == 0 {
		return ""
	}
	var sb strings.Builder
	writeRow := func(r int) {
		sb.WriteString("|")
		for c := 0; c < columns; c++ {
			sb.WriteString(" ")
			sb.WriteString(Escape(t.Cell(r, c)))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(0)
	sb.WriteString("|")
	for c := 0; c < columns; c++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for r := 1; r < len(t); r++ {
		writeRow(r)
	}
	return sb.String()
}
