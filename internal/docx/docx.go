package docx

import "time"

// Role tags a block with the part of the memo it renders. Roles drive
// validation and preview extraction.
type Role string

// Memo roles.
const (
	RoleNone       Role = ""
	RoleHeader     Role = "header"
	RoleDate       Role = "date"
	RoleTitle      Role = "title"
	RoleSubject    Role = "subject"
	RoleBody       Role = "body"
	RoleBullet     Role = "bullet"
	RoleTable      Role = "table"
	RoleConclusion Role = "conclusion"
	RoleSignatures Role = "signatures"
)

// Alignment is a paragraph justification value as WordprocessingML spells it.
type Alignment string

// Paragraph alignments.
const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "both"
)

// Run is a span of uniformly formatted text. Size is in half-points; zero
// inherits the document default.
type Run struct {
	Text string
	Bold bool
	Size int
}

// Spacing is paragraph spacing in twips. Line is in 240ths of a line, so 240 is
// single spacing.
type Spacing struct {
	Before int
	After  int
	Line   int
}

// SingleSpacing is the tightest spacing the layout uses.
var SingleSpacing = Spacing{Before: 0, After: 0, Line: 240}

// Block is one top-level element of the page: *Paragraph, *Table or *Image.
type Block interface {
	BlockRole() Role
}

// Paragraph is a block of runs.
type Paragraph struct {
	Role    Role
	Runs    []Run
	Align   Alignment
	Spacing Spacing
}

// BlockRole implements Block.
func (p *Paragraph) BlockRole() Role { return p.Role }

// Text returns the concatenated run text.
func (p *Paragraph) Text() string {
	if len(p.Runs) == 1 {
		return p.Runs[0].Text
	}
	var n int
	for _, r := range p.Runs {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range p.Runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// Cell is a table cell. A cell with no paragraphs is written with one empty
// paragraph.
type Cell struct {
	Paragraphs []*Paragraph
}

// Row is a table row.
type Row struct {
	Cells []Cell
}

// Table is a grid with fixed column widths in twips.
type Table struct {
	Role    Role
	Rows    []Row
	Widths  []int
	Borders bool
}

// BlockRole implements Block.
func (t *Table) BlockRole() Role { return t.Role }

// Image is an inline picture. Width and Height are in EMUs.
type Image struct {
	Role   Role
	Data   []byte
	Format string
	Width  int64
	Height int64
	Align  Alignment
}

// BlockRole implements Block.
func (i *Image) BlockRole() Role { return i.Role }

// Properties are written to docProps/core.xml.
type Properties struct {
	Title   string
	Creator string
	Created time.Time
}

// Document is an ordered list of blocks laid out on a single page size.
type Document struct {
	Page       PageSettings
	Properties Properties
	Blocks     []Block
}

// New creates an empty document using page.
func New(page PageSettings) *Document {
	return &Document{Page: page}
}

// Add appends blocks in order.
func (d *Document) Add(blocks ...Block) {
	d.Blocks = append(d.Blocks, blocks...)
}

// Paragraphs returns every paragraph, including those inside table cells, in
// document order.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, b := range d.Blocks {
		switch v := b.(type) {
		case *Paragraph:
			out = append(out, v)
		case *Table:
			for _, row := range v.Rows {
				for _, cell := range row.Cells {
					out = append(out, cell.Paragraphs...)
				}
			}
		}
	}
	return out
}

// HasRole reports whether any top-level block carries role.
func (d *Document) HasRole(role Role) bool {
	for _, b := range d.Blocks {
		if b.BlockRole() == role {
			return true
		}
	}
	return false
}
