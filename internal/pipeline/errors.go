package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds surfaced in failed build results.
const (
	KindValidation  = "validation_error"
	KindAssembly    = "assembly_error"
	KindPersistence = "persistence_error"
	KindRequest     = "request_error"
)

// BuildError is a terminal build failure tagged with its kind
type BuildError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of a *BuildError in err's chain, or KindRequest.
func KindOf(err error) string {
	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		return buildErr.Kind
	}
	return KindRequest
}
