// Package types provides type definitions for structured data used throughout the NFA builder.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DocumentType is the financial intent of a memo. It selects the closing clause.
type DocumentType string

const (
	// DocumentReimbursement requests repayment of money already spent.
	DocumentReimbursement DocumentType = "reimbursement"
	// DocumentAdvance requests release of funds before the event.
	DocumentAdvance DocumentType = "advance"
)

// ParseDocumentType accepts any casing of the known document types.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case DocumentReimbursement:
		return DocumentReimbursement, nil
	case DocumentAdvance:
		return DocumentAdvance, nil
	default:
		return "", fmt.Errorf("unknown document type %q (want reimbursement or advance)", s)
	}
}

// UnmarshalText lowercases the value so "Reimbursement" and "ADVANCE" decode.
// Unknown values are kept as-is and rejected by Validate.
func (d *DocumentType) UnmarshalText(text []byte) error {
	*d = DocumentType(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// TableData is a row-major grid of cell strings. Row 0 is the header. Rows may
// be ragged; see Columns.
type TableData [][]string

// Columns is the rendered column count: the header width, or the widest row
// when the header is empty.
func (t TableData) Columns() int {
	if len(t) == 0 {
		return 0
	}
	if n := len(t[0]); n > 0 {
		return n
	}
	widest := 0
	for _, row := range t {
		if len(row) > widest {
			widest = len(row)
		}
	}
	return widest
}

// Cell returns the cell at (row, col), or "" when the row is too short.
func (t TableData) Cell(row, col int) string {
	if row < 0 || row >= len(t) || col < 0 || col >= len(t[row]) {
		return ""
	}
	return t[row][col]
}

// UnmarshalJSON accepts numeric, boolean and null cells alongside strings, as
// spreadsheets exported by the web client contain them.
func (t *TableData) UnmarshalJSON(data []byte) error {
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("table_data: %w", err)
	}
	if raw == nil {
		*t = nil
		return nil
	}
	out := make(TableData, len(raw))
	for i, row := range raw {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			switch v := cell.(type) {
			case nil:
			case string:
				out[i][j] = v
			case float64:
				out[i][j] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				out[i][j] = strconv.FormatBool(v)
			default:
				return fmt.Errorf("table_data[%d][%d]: unsupported cell type %T", i, j, cell)
			}
		}
	}
	*t = out
	return nil
}

// GenerationRequest is the input to a single NFA build.
type GenerationRequest struct {
	Subject      string       `json:"subject" validate:"required,max=300"`
	Summary      string       `json:"summary" validate:"required,max=4000"`
	DocumentType DocumentType `json:"nfa_type" validate:"required,oneof=reimbursement advance"`
	WantBullets  bool         `json:"need_bullets"`
	Table        TableData    `json:"table_data,omitempty" validate:"omitempty,max=40,dive,max=12"`
}

// Validate validates the GenerationRequest using the validator.
func (r *GenerationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// EditRequest asks for a free-form edit to previously generated memo text.
type EditRequest struct {
	Text        string `json:"text" validate:"required"`
	Instruction string `json:"prompt" validate:"required,max=1000"`
}

// Validate validates the EditRequest using the validator.
func (r *EditRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// RenderRequest renders a document from already edited text, skipping
// generation.
type RenderRequest struct {
	GenerationRequest
	EditedText string `json:"edited_text" validate:"required"`
}

// Validate validates the RenderRequest using the validator.
func (r *RenderRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ParsedSections is the classifier output: the semantic roles found in raw
// generated text.
type ParsedSections struct {
	SubjectLine    string   `json:"subject_line"`
	BodyParagraphs []string `json:"body_paragraphs"`
	Bullets        []string `json:"bullets"`
	Conclusion     string   `json:"conclusion"`
}

// SubjectValue returns the subject line without its "Subject:" label.
func (p ParsedSections) SubjectValue() string {
	s := strings.TrimSpace(p.SubjectLine)
	if len(s) >= len(SubjectMarker) && strings.EqualFold(s[:len(SubjectMarker)], SubjectMarker) {
		s = strings.TrimSpace(s[len(SubjectMarker):])
	}
	return s
}

// SubjectMarker labels the subject line.
const SubjectMarker = "Subject:"
