// Package docx builds single-page WordprocessingML documents.
package docx

import (
	"fmt"
	"strings"

	"github.com/jonathan/nfa-builder/internal/types"
)

// TemplateError represents an error parsing or executing a part template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a failure while packaging the document
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// ValidationError is returned when a document has problems that cannot be
// repaired in place.
type ValidationError struct {
	Violations []types.Violation
}

func (e *ValidationError) Error() string {
	details := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		details = append(details, fmt.Sprintf("%s: %s", v.Type, v.Details))
	}
	return fmt.Sprintf("document validation failed: %s", strings.Join(details, "; "))
}
