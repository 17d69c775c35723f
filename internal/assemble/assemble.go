// Package assemble lays classified memo sections out on a single page.
package assemble

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/classify"
	"github.com/jonathan/nfa-builder/internal/docx"
	"github.com/jonathan/nfa-builder/internal/sanitize"
	"github.com/jonathan/nfa-builder/internal/types"
)

// Title is the heading printed on every memo.
const Title = "Note For Approval (NFA)"

// DateLayout formats the date stamp.
const DateLayout = "02/01/2006"

// SignatureLine is printed above each signatory name.
const SignatureLine = "_________________"

// Font sizes in points.
const (
	bodySize      = 11
	titleSize     = 12
	tableSize     = 10
	tableBoldSize = 11
	signatureSize = 10
)

// Column widths in inches.
const (
	firstColumnWidth    = 0.8
	lastColumnWidth     = 1.0
	interiorColumnWidth = 1.5
	signatureWidth      = 2.2
	spacerWidth         = 1.6
)

// RequiredRoles are the blocks every assembled memo must contain.
var RequiredRoles = []docx.Role{
	docx.RoleDate,
	docx.RoleTitle,
	docx.RoleSubject,
	docx.RoleConclusion,
	docx.RoleSignatures,
}

// PreviewRoles are the paragraph roles extracted as preview text.
var PreviewRoles = []docx.Role{
	docx.RoleSubject,
	docx.RoleBody,
	docx.RoleBullet,
	docx.RoleConclusion,
}

// Options configures an Assembler.
type Options struct {
	Page docx.PageSettings
	// HeaderImage is the raw PNG/JPEG/GIF printed at the top; nil skips it.
	HeaderImage []byte
	// Defaults fills signature cells the store left empty.
	Defaults types.SignatureLayout
	Creator  string
	// Now stamps the date; nil uses time.Now.
	Now func() time.Time
}

// Assembler builds documents. Its fields are read-only after New, so one
// Assembler may serve concurrent builds.
type Assembler struct {
	page     docx.PageSettings
	header   *docx.Image
	defaults types.SignatureLayout
	creator  string
	now      func() time.Time
	logger   *zap.Logger
}

// New creates an Assembler. An undecodable header image is logged and
// skipped.
func New(opts Options, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Page.Width == 0 {
		opts.Page = docx.LetterPage()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &Assembler{
		page:     opts.Page,
		defaults: opts.Defaults,
		creator:  opts.Creator,
		now:      opts.Now,
		logger:   logger,
	}
	if len(opts.HeaderImage) > 0 {
		img, err := docx.NewImage(opts.HeaderImage, opts.Page.ContentWidthEMU())
		if err != nil {
			logger.Warn("header image unusable, building without header", zap.Error(err))
		} else {
			img.Role = docx.RoleHeader
			a.header = img
		}
	}
	return a
}

// HasHeader reports whether memos get a header image.
func (a *Assembler) HasHeader() bool {
	return a.header != nil
}

// Assemble composes the page from req, the classified sections, the
// synthesized conclusion and the resolved signatures. Any closing clause the
// classifier found is ignored; conclusionText always wins. The document is
// normalized and validated before it is returned.
func (a *Assembler) Assemble(req *types.GenerationRequest, sections types.ParsedSections, conclusionText string, layout types.SignatureLayout) (*docx.Document, *types.Violations, error) {
	if req == nil {
		return nil, nil, &docx.RenderError{Message: "generation request is nil"}
	}

	doc := docx.New(a.page)
	doc.Properties = docx.Properties{
		Title:   sanitize.Inline(req.Subject),
		Creator: a.creator,
		Created: a.now(),
	}

	if a.header != nil {
		header := *a.header
		doc.Add(&header)
	}

	doc.Add(
		paragraph(docx.RoleDate, docx.AlignRight, docx.Run{Text: "Date: " + a.now().Format(DateLayout), Size: docx.HalfPoints(bodySize)}),
		paragraph(docx.RoleTitle, docx.AlignCenter, docx.Run{Text: Title, Bold: true, Size: docx.HalfPoints(titleSize)}),
		paragraph(docx.RoleSubject, docx.AlignJustify,
			docx.Run{Text: types.SubjectMarker + " ", Bold: true, Size: docx.HalfPoints(bodySize)},
			docx.Run{Text: subjectValue(sections, req.Subject), Size: docx.HalfPoints(bodySize)},
		),
	)

	body := sections.BodyParagraphs
	bullets := sections.Bullets
	if !req.WantBullets {
		body = append(append([]string(nil), body...), bullets...)
		bullets = nil
	}
	for _, text := range body {
		if text = stripGlyph(sanitize.Inline(text)); text != "" {
			doc.Add(paragraph(docx.RoleBody, docx.AlignJustify, docx.Run{Text: text, Size: docx.HalfPoints(bodySize)}))
		}
	}
	for _, text := range bullets {
		if text = stripGlyph(sanitize.Inline(text)); text != "" {
			doc.Add(paragraph(docx.RoleBullet, docx.AlignJustify, docx.Run{Text: classify.BulletGlyph + " " + text, Size: docx.HalfPoints(bodySize)}))
		}
	}

	if table := dataTable(req.Table); table != nil {
		doc.Add(table)
	}

	conclusionText = sanitize.Inline(conclusionText)
	if conclusionText == "" {
		conclusionText = classify.DefaultConclusion
	}
	doc.Add(paragraph(docx.RoleConclusion, docx.AlignJustify, docx.Run{Text: conclusionText, Size: docx.HalfPoints(bodySize)}))

	layout = layout.WithDefaults(a.defaults)
	doc.Add(
		signatureTable(layout.TopLeft, "(Prepared by)", layout.TopRight, "(Approved by)"),
		paragraph(docx.RoleSignatures, docx.AlignLeft),
		signatureTable(layout.BottomLeft, "(Recommended by)", layout.BottomRight, "(Approved by)"),
	)

	docx.Normalize(doc)

	report, err := docx.Validate(doc, RequiredRoles...)
	if err != nil {
		return nil, report, err
	}
	if n := report.Repaired(); n > 0 {
		a.logger.Warn("repaired control characters in assembled document", zap.Int("runs", n))
	}
	return doc, report, nil
}

// PreviewText extracts the memo text shown to users: subject, body, bullets
// and conclusion separated by blank lines.
func PreviewText(doc *docx.Document) string {
	return docx.ExtractText(doc, PreviewRoles...)
}

// ColumnWidths assigns table column widths in twips: the first column narrow,
// the last column narrow and interior columns wide.
func ColumnWidths(columns int) []int {
	if columns <= 0 {
		return nil
	}
	if columns == 1 {
		return []int{docx.Twips(interiorColumnWidth)}
	}
	widths := make([]int, columns)
	for i := range widths {
		switch i {
		case 0:
			widths[i] = docx.Twips(firstColumnWidth)
		case columns - 1:
			widths[i] = docx.Twips(lastColumnWidth)
		default:
			widths[i] = docx.Twips(interiorColumnWidth)
		}
	}
	return widths
}

// dataTable renders t with one column per header cell. Extra cells in longer
// rows are dropped and short rows are padded with empty cells. The header
// row, and a final row that mentions "total", are bold.
func dataTable(t types.TableData) *docx.Table {
	columns := t.Columns()
	if columns == 0 {
		return nil
	}

	table := &docx.Table{
		Role:    docx.RoleTable,
		Borders: true,
		Widths:  ColumnWidths(columns),
	}
	last := len(t) - 1
	for r := range t {
		bold := r == 0 || (r == last && isTotalRow(t[r]))
		size := tableSize
		if bold {
			size = tableBoldSize
		}
		row := docx.Row{Cells: make([]docx.Cell, columns)}
		for c := 0; c < columns; c++ {
			row.Cells[c] = docx.Cell{Paragraphs: []*docx.Paragraph{
				{
					Role:  docx.RoleTable,
					Align: docx.AlignCenter,
					Runs:  []docx.Run{{Text: sanitize.Inline(t.Cell(r, c)), Bold: bold, Size: docx.HalfPoints(float64(size))}},
				},
			}}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func isTotalRow(row []string) bool {
	for _, cell := range row {
		if strings.Contains(strings.ToLower(cell), "total") {
			return true
		}
	}
	return false
}

// signatureTable is one half of the signature grid: signature line, name,
// designation and role label under two signatories with a blank spacer
// column between them.
func signatureTable(left types.Signatory, leftRole string, right types.Signatory, rightRole string) *docx.Table {
	lines := func(s types.Signatory, role string) []string {
		return []string{SignatureLine, sanitize.Inline(s.Name), sanitize.Inline(s.Designation), role}
	}
	leftLines := lines(left, leftRole)
	rightLines := lines(right, rightRole)

	table := &docx.Table{
		Role:   docx.RoleSignatures,
		Widths: []int{docx.Twips(signatureWidth), docx.Twips(spacerWidth), docx.Twips(signatureWidth)},
	}
	for i := range leftLines {
		table.Rows = append(table.Rows, docx.Row{Cells: []docx.Cell{
			signatureCell(leftLines[i]),
			{},
			signatureCell(rightLines[i]),
		}})
	}
	return table
}

func signatureCell(text string) docx.Cell {
	return docx.Cell{Paragraphs: []*docx.Paragraph{
		{
			Role:  docx.RoleSignatures,
			Align: docx.AlignLeft,
			Runs:  []docx.Run{{Text: text, Size: docx.HalfPoints(signatureSize)}},
		},
	}}
}

func paragraph(role docx.Role, align docx.Alignment, runs ...docx.Run) *docx.Paragraph {
	return &docx.Paragraph{Role: role, Align: align, Runs: runs}
}

func subjectValue(sections types.ParsedSections, fallback string) string {
	if v := sanitize.Inline(sections.SubjectValue()); v != "" {
		return v
	}
	return sanitize.Inline(fallback)
}

// stripGlyph removes a bullet glyph left at the start of body text so only
// bullet paragraphs carry one.
func stripGlyph(text string) string {
	for _, glyph := range []string{classify.BulletGlyph, "●", "▪"} {
		if rest, ok := strings.CutPrefix(text, glyph); ok {
			return strings.TrimSpace(rest)
		}
	}
	return text
}

// Describe summarizes a document for logs.
func Describe(doc *docx.Document) string {
	counts := map[docx.Role]int{}
	for _, b := range doc.Blocks {
		counts[b.BlockRole()]++
	}
	return fmt.Sprintf("blocks=%d body=%d bullets=%d table=%t header=%t",
		len(doc.Blocks), counts[docx.RoleBody], counts[docx.RoleBullet], counts[docx.RoleTable] > 0, counts[docx.RoleHeader] > 0)
}
