//nolint:revive // types is a standard Go package name pattern
package types

// BuildResult is the record returned for a generate or render call. Field names
// follow the JSON contract the web client expects.
type BuildResult struct {
	Success     bool   `json:"success"`
	FilePath    string `json:"file_path,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	PreviewText string `json:"nfa_text,omitempty"`
	PreviewHTML string `json:"preview_html,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorType   string `json:"error_type,omitempty"`
}

// EditResult is the record returned for an edit call. The text is not yet
// rendered; a render call turns it into a document.
type EditResult struct {
	Success    bool   `json:"success"`
	EditedText string `json:"edited_text"`
	Applied    bool   `json:"applied"`
	Error      string `json:"error,omitempty"`
}
