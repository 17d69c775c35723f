package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/types"
)

func TestPrintSections(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSections(&types.ParsedSections{
		SubjectLine:    "Subject: Chess Tournament",
		BodyParagraphs: []string{"The club proposes a tournament."},
		Bullets:        []string{"Trophies", "Venue"},
		Conclusion:     "The above proposal is submitted for approval.",
	})
	output := buf.String()

	assert.Contains(t, output, "CLASSIFIED SECTIONS")
	assert.Contains(t, output, "Subject: Chess Tournament")
	assert.Contains(t, output, "Body paragraphs: 1")
	assert.Contains(t, output, "• Trophies")
	assert.Contains(t, output, "submitted for approval")
}

func TestPrintSections_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSections(nil)
	assert.Empty(t, buf.String())
}

func TestPrintSections_ManyParagraphs(t *testing.T) {
	var buf bytes.Buffer
	sections := &types.ParsedSections{SubjectLine: "Subject: A"}
	for i := 0; i < 8; i++ {
		sections.BodyParagraphs = append(sections.BodyParagraphs, "para")
	}

	NewPrinter(&buf).PrintSections(sections)

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintSignatures(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSignatures(types.SignatureLayout{
		TopLeft:     types.Signatory{Name: "A. Rao", Designation: "Dean"},
		TopRight:    types.Signatory{Name: "B. Iyer", Designation: "Treasurer"},
		BottomLeft:  types.Signatory{Name: "C. Das", Designation: "Registrar"},
		BottomRight: types.Signatory{Name: "D. Sen", Designation: "VC"},
	})
	output := buf.String()

	assert.Contains(t, output, "SIGNATURE LAYOUT")
	for _, name := range []string{"A. Rao", "B. Iyer", "C. Das", "D. Sen", "Treasurer"} {
		assert.Contains(t, output, name)
	}
}

func TestPrintViolations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintViolations(nil)
	assert.Contains(t, buf.String(), "NO VIOLATIONS FOUND")

	buf.Reset()
	p.PrintViolations(&types.Violations{Violations: []types.Violation{
		{Type: "empty_paragraph", Severity: types.SeverityRepaired, Details: "removed empty paragraph"},
		{Type: "missing_role", Severity: types.SeverityError, Details: strings.Repeat("x", 80)},
	}})
	output := buf.String()
	assert.Contains(t, output, "Found 2 violations (1 repaired)")
	assert.Contains(t, output, "✔ empty_paragraph")
	assert.Contains(t, output, "⚠ missing_role")
	assert.Contains(t, output, "...")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResult(types.BuildResult{Success: true, FileName: "NFA_advance_Chess.docx", FilePath: "/out/NFA_advance_Chess.docx"})
	assert.Contains(t, buf.String(), "NFA GENERATED")
	assert.Contains(t, buf.String(), "NFA_advance_Chess.docx")

	buf.Reset()
	p.PrintResult(types.BuildResult{Error: "disk full", ErrorType: "persistence_error"})
	assert.Contains(t, buf.String(), "BUILD FAILED")
	assert.Contains(t, buf.String(), "persistence_error")
}

func TestPrintEdit(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintEdit(types.EditResult{EditedText: "Subject: A", Applied: false})
	assert.Contains(t, buf.String(), "Edit not applied")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRuns(nil)
	assert.Contains(t, buf.String(), "No runs recorded")

	buf.Reset()
	p.PrintRuns([]db.Run{{
		ID:             uuid.New(),
		Subject:        "Chess Tournament",
		Status:         db.RunStatusCompleted,
		ApprovalStatus: db.ApprovalApproved,
		CreatedAt:      time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
	}})
	output := buf.String()
	assert.Contains(t, output, "NFA HISTORY (1)")
	assert.Contains(t, output, "12/03/2025")
	assert.Contains(t, output, "Chess Tournament")
}

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBatch([]types.BuildResult{
		{Success: true, FileName: "NFA_advance_A.docx"},
		{ErrorType: "validation_error"},
	})
	output := buf.String()
	assert.Contains(t, output, "NFA_advance_A.docx")
	assert.Contains(t, output, "validation_error")
	assert.Contains(t, output, "1 of 2 succeeded")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "••••...", truncate(strings.Repeat("•", 20), 7))
}
