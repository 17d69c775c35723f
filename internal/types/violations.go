//nolint:revive // types is a standard Go package name pattern
package types

// Violation severities.
const (
	SeverityRepaired = "repaired"
	SeverityError    = "error"
)

// Violation describes one problem found while validating an assembled
// document. Repaired violations were fixed in place; errors end the build.
type Violation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
	Block    *int   `json:"block,omitempty"`
}

// Violations represents a collection of validation findings.
type Violations struct {
	Violations []Violation `json:"violations"`
}

// Add appends a violation.
func (v *Violations) Add(violation Violation) {
	v.Violations = append(v.Violations, violation)
}

// Errors returns only the violations that could not be repaired.
func (v *Violations) Errors() []Violation {
	var out []Violation
	for _, violation := range v.Violations {
		if violation.Severity == SeverityError {
			out = append(out, violation)
		}
	}
	return out
}

// Repaired counts the violations that were fixed in place.
func (v *Violations) Repaired() int {
	n := 0
	for _, violation := range v.Violations {
		if violation.Severity == SeverityRepaired {
			n++
		}
	}
	return n
}
