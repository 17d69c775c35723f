package docx

import (
	"archive/zip"
	"bytes"
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var parts = template.Must(template.New("docx").Funcs(template.FuncMap{
	"text": EscapeXML,
}).ParseFS(templateFS, "templates/*.tmpl"))

// EscapeXML escapes text for use in element content or attribute values.
func EscapeXML(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for _, r := range text {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '\n', '\r', '\t':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type blockView struct {
	Paragraph *Paragraph
	Table     *tableView
	Image     *imageView
}

type tableView struct {
	TotalWidth int
	Borders    bool
	Widths     []int
	Rows       []rowView
}

type rowView struct {
	Cells []cellView
}

type cellView struct {
	Width      int
	Paragraphs []*Paragraph
}

type imageView struct {
	ID          int
	RelID       string
	Name        string
	Extension   string
	ContentType string
	Width       int64
	Height      int64
	Align       Alignment
	data        []byte
}

type documentView struct {
	Page   PageSettings
	Blocks []blockView
	Images []*imageView
}

// ImageTypes returns one entry per distinct extension for [Content_Types].xml.
func (v documentView) ImageTypes() []*imageView {
	seen := map[string]bool{}
	var out []*imageView
	for _, img := range v.Images {
		if seen[img.Extension] {
			continue
		}
		seen[img.Extension] = true
		out = append(out, img)
	}
	return out
}

// Write packages d as a .docx archive into w.
func (d *Document) Write(w io.Writer) error {
	view := buildView(d)

	created := d.Properties.Created
	if created.IsZero() {
		created = time.Now()
	}
	core := struct {
		Title   string
		Creator string
		Created string
	}{
		Title:   d.Properties.Title,
		Creator: d.Properties.Creator,
		Created: created.UTC().Format(time.RFC3339),
	}

	entries := []struct {
		name     string
		template string
		data     any
	}{
		{"[Content_Types].xml", "content_types.xml.tmpl", view},
		{"_rels/.rels", "rels.xml.tmpl", nil},
		{"docProps/core.xml", "core.xml.tmpl", core},
		{"word/document.xml", "document.xml.tmpl", view},
		{"word/_rels/document.xml.rels", "document.xml.rels.tmpl", view},
		{"word/styles.xml", "styles.xml.tmpl", d.Page},
	}

	zw := zip.NewWriter(w)
	for _, e := range entries {
		var buf bytes.Buffer
		if err := parts.ExecuteTemplate(&buf, e.template, e.data); err != nil {
			return &TemplateError{Message: fmt.Sprintf("failed to execute %s", e.template), Cause: err}
		}
		if err := writeEntry(zw, e.name, buf.Bytes()); err != nil {
			return err
		}
	}
	for _, img := range view.Images {
		if err := writeEntry(zw, "word/media/"+img.Name, img.data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return &RenderError{Message: "failed to finalize archive", Cause: err}
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to create %s", name), Cause: err}
	}
	if _, err := f.Write(data); err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to write %s", name), Cause: err}
	}
	return nil
}

// buildView flattens the document into template data, numbering images and
// closing the body with a paragraph when it would otherwise end in a table.
func buildView(d *Document) documentView {
	view := documentView{Page: d.Page}

	for _, b := range d.Blocks {
		switch v := b.(type) {
		case *Paragraph:
			view.Blocks = append(view.Blocks, blockView{Paragraph: v})
		case *Table:
			view.Blocks = append(view.Blocks, blockView{Table: newTableView(v)})
		case *Image:
			n := len(view.Images) + 1
			img := &imageView{
				ID:          n,
				RelID:       fmt.Sprintf("rIdImage%d", n),
				Name:        fmt.Sprintf("image%d.%s", n, extension(v.Format)),
				Extension:   extension(v.Format),
				ContentType: contentType(v.Format),
				Width:       v.Width,
				Height:      v.Height,
				Align:       v.Align,
				data:        v.Data,
			}
			view.Images = append(view.Images, img)
			view.Blocks = append(view.Blocks, blockView{Image: img})
		}
	}

	if n := len(view.Blocks); n == 0 || view.Blocks[n-1].Table != nil {
		view.Blocks = append(view.Blocks, blockView{Paragraph: &Paragraph{Spacing: SingleSpacing}})
	}
	return view
}

func newTableView(t *Table) *tableView {
	cols := len(t.Widths)
	for _, row := range t.Rows {
		if len(row.Cells) > cols {
			cols = len(row.Cells)
		}
	}

	widths := make([]int, cols)
	total := 0
	for i := range widths {
		if i < len(t.Widths) {
			widths[i] = t.Widths[i]
		} else {
			widths[i] = Twips(1.5)
		}
		total += widths[i]
	}

	tv := &tableView{TotalWidth: total, Borders: t.Borders, Widths: widths}
	for _, row := range t.Rows {
		rv := rowView{Cells: make([]cellView, cols)}
		for i := 0; i < cols; i++ {
			var paragraphs []*Paragraph
			if i < len(row.Cells) {
				paragraphs = row.Cells[i].Paragraphs
			}
			if len(paragraphs) == 0 {
				paragraphs = []*Paragraph{{Spacing: SingleSpacing}}
			}
			rv.Cells[i] = cellView{Width: widths[i], Paragraphs: paragraphs}
		}
		tv.Rows = append(tv.Rows, rv)
	}
	return tv
}
