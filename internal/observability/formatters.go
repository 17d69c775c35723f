// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/nfa-builder/internal/assemble"
	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSections outputs a summary of the classified memo sections.
func (p *Printer) PrintSections(sections *types.ParsedSections) {
	if sections == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n\n", sections.SubjectLine))

	sb.WriteString(fmt.Sprintf("Body paragraphs: %d\n", len(sections.BodyParagraphs)))
	for i, para := range sections.BodyParagraphs {
		if i == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(sections.BodyParagraphs)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, para))
	}

	if len(sections.Bullets) > 0 {
		sb.WriteString(fmt.Sprintf("\nBullets: %d\n", len(sections.Bullets)))
		for _, b := range sections.Bullets {
			sb.WriteString(fmt.Sprintf("  • %s\n", b))
		}
	}

	sb.WriteString(fmt.Sprintf("\nConclusion:\n  %s\n", sections.Conclusion))

	p.printBox("CLASSIFIED SECTIONS", sb.String())
}

// PrintSignatures outputs the resolved 2x2 signature grid.
func (p *Printer) PrintSignatures(layout types.SignatureLayout) {
	var sb strings.Builder
	row := func(label string, left, right types.Signatory) {
		sb.WriteString(fmt.Sprintf("%s\n", label))
		sb.WriteString(fmt.Sprintf("  %-24s  %s\n", left.Name, right.Name))
		sb.WriteString(fmt.Sprintf("  %-24s  %s\n", left.Designation, right.Designation))
	}
	row("Top row", layout.TopLeft, layout.TopRight)
	sb.WriteString("\n")
	row("Bottom row", layout.BottomLeft, layout.BottomRight)

	p.printBox("SIGNATURE LAYOUT", sb.String())
}

// PrintViolations outputs any validation findings from assembly.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintViolations(violations *types.Violations) {
	if violations == nil || len(violations.Violations) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO VIOLATIONS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d violations (%d repaired):\n\n",
		len(violations.Violations), violations.Repaired()))

	for i, v := range violations.Violations {
		marker := "⚠"
		if v.Severity == types.SeverityRepaired {
			marker = "✔"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", marker, v.Type))
		sb.WriteString(fmt.Sprintf("  %s\n", truncate(v.Details, 45)))
		if i < len(violations.Violations)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DOCUMENT VIOLATIONS", sb.String())
}

// PrintResult outputs the outcome of one build.
func (p *Printer) PrintResult(result types.BuildResult) {
	var sb strings.Builder
	if !result.Success {
		sb.WriteString(fmt.Sprintf("Error type: %s\n", result.ErrorType))
		sb.WriteString(fmt.Sprintf("Error:      %s\n", result.Error))
		p.printBox("❌ BUILD FAILED", sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("File: %s\n", result.FileName))
	sb.WriteString(fmt.Sprintf("Path: %s\n", result.FilePath))
	if result.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run:  %s\n", result.RunID))
	}
	p.printBox("✅ NFA GENERATED", sb.String())
}

// PrintEdit outputs the outcome of an edit.
func (p *Printer) PrintEdit(result types.EditResult) {
	status := "Edit applied"
	if !result.Applied {
		status = "Edit not applied, original text returned"
	}
	p.printBox("EDIT RESULT", status+"\n\n"+result.EditedText)
}

// PrintRuns outputs a table of recorded builds.
func (p *Printer) PrintRuns(runs []db.Run) {
	if len(runs) == 0 {
		p.printBox("NFA HISTORY", "No runs recorded")
		return
	}

	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%s  %-9s %-8s %s\n",
			run.CreatedAt.Format(assemble.DateLayout), run.ApprovalStatus, run.Status, run.Subject))
		sb.WriteString(fmt.Sprintf("  %s\n", run.ID))
	}
	p.printBox(fmt.Sprintf("NFA HISTORY (%d)", len(runs)), sb.String())
}

// PrintBatch outputs a one-line summary per build plus totals.
func (p *Printer) PrintBatch(results []types.BuildResult) {
	var sb strings.Builder
	succeeded := 0
	for i, r := range results {
		if r.Success {
			succeeded++
			sb.WriteString(fmt.Sprintf("%2d ✔ %s\n", i+1, r.FileName))
		} else {
			sb.WriteString(fmt.Sprintf("%2d ✘ %s\n", i+1, r.ErrorType))
		}
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d succeeded\n", succeeded, len(results)))
	p.printBox("BATCH RESULTS", sb.String())
}
