package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Approval status values tracked for each generated memo
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Run modes
const (
	ModeGenerate = "generate"
	ModeRender   = "render"
)

// ArtifactStep constants for known artifact types
const (
	StepRequest    = "request"
	StepRawText    = "raw_text"
	StepSections   = "sections"
	StepSignatures = "signature_layout"
	StepViolations = "violations"
	StepPreview    = "preview_text"
)

// Artifact categories group steps by pipeline stage
const (
	CategoryGeneration     = "generation"
	CategoryClassification = "classification"
	CategoryAssembly       = "assembly"
)

// Run represents one NFA build
type Run struct {
	ID             uuid.UUID  `json:"id"`
	Subject        string     `json:"subject"`
	Summary        string     `json:"summary"`
	DocumentType   string     `json:"nfa_type"`
	WantBullets    bool       `json:"need_bullets"`
	Mode           string     `json:"mode"`
	Status         string     `json:"status"`
	ApprovalStatus string     `json:"approval_status"`
	FileName       *string    `json:"file_name,omitempty"`
	FilePath       *string    `json:"file_path,omitempty"`
	PreviewText    *string    `json:"preview_text,omitempty"`
	ErrorKind      *string    `json:"error_kind,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunInput holds the request fields recorded when a run starts
type RunInput struct {
	Subject      string
	Summary      string
	DocumentType string
	WantBullets  bool
	Mode         string
}

// RunOutcome holds what a successful run produced
type RunOutcome struct {
	FileName    string
	FilePath    string
	PreviewText string
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Status         string
	ApprovalStatus string
	Limit          int
}

// Signatory is a row of the signatories table
type Signatory struct {
	ID          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	Name        string    `json:"name"`
	Designation string    `json:"designation"`
	SortOrder   int       `json:"sort_order"`
}

// IsValidApprovalStatus reports whether s is a known approval status
func IsValidApprovalStatus(s string) bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}
