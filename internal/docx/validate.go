package docx

import (
	"fmt"

	"github.com/jonathan/nfa-builder/internal/sanitize"
	"github.com/jonathan/nfa-builder/internal/types"
)

// Validate checks d before it is persisted. Runs that still carry control
// characters are repaired in place and reported with SeverityRepaired. A
// missing required role cannot be repaired and yields a *ValidationError.
func Validate(d *Document, required ...Role) (*types.Violations, error) {
	report := &types.Violations{}

	if d == nil || len(d.Blocks) == 0 {
		report.Add(types.Violation{
			Type:     "empty_document",
			Severity: types.SeverityError,
			Details:  "document has no blocks",
		})
		return report, &ValidationError{Violations: report.Errors()}
	}

	for i, b := range d.Blocks {
		for _, p := range blockParagraphs(b) {
			for j := range p.Runs {
				run := &p.Runs[j]
				if !sanitize.HasControl(run.Text) {
					continue
				}
				before := len(run.Text)
				run.Text = sanitize.Inline(run.Text)
				block := i
				report.Add(types.Violation{
					Type:     "control_characters",
					Severity: types.SeverityRepaired,
					Details:  fmt.Sprintf("cleaned %s run (%d -> %d bytes)", roleName(p.Role, b.BlockRole()), before, len(run.Text)),
					Block:    &block,
				})
			}
		}
	}

	for _, role := range required {
		if !d.HasRole(role) {
			report.Add(types.Violation{
				Type:     "missing_section",
				Severity: types.SeverityError,
				Details:  fmt.Sprintf("no %s block", role),
			})
		}
	}

	if errs := report.Errors(); len(errs) > 0 {
		return report, &ValidationError{Violations: errs}
	}
	return report, nil
}

func blockParagraphs(b Block) []*Paragraph {
	switch v := b.(type) {
	case *Paragraph:
		return []*Paragraph{v}
	case *Table:
		var out []*Paragraph
		for _, row := range v.Rows {
			for _, cell := range row.Cells {
				out = append(out, cell.Paragraphs...)
			}
		}
		return out
	}
	return nil
}

func roleName(paragraphRole, blockRole Role) string {
	if paragraphRole != RoleNone {
		return string(paragraphRole)
	}
	if blockRole != RoleNone {
		return string(blockRole)
	}
	return "unlabelled"
}
