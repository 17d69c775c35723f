// Package storage persists rendered memos to the output directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/nfa-builder/internal/sanitize"
	"github.com/jonathan/nfa-builder/internal/types"
)

// Extension is appended to every memo file name.
const Extension = ".docx"

// maxSubjectRunes bounds the subject part of a file name.
const maxSubjectRunes = 60

// ErrInvalidName is returned for names that would escape the output directory.
var ErrInvalidName = errors.New("invalid file name")

// WriteError represents a failed or empty write
type WriteError struct {
	Path    string
	Message string
	Cause   error
}

func (e *WriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("write error: %s (%s): %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("write error: %s (%s)", e.Message, e.Path)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// FileName derives the deterministic memo file name from the document type
// and subject: NFA_<type>_<subject>.docx, or ..._edited.docx for rendered
// edits.
func FileName(docType types.DocumentType, subject string, edited bool) string {
	name := "NFA_" + string(docType) + "_" + SafeSubject(subject)
	if edited {
		name += "_edited"
	}
	return name + Extension
}

// SafeSubject turns a subject into a file-name fragment: spaces become
// underscores, the result is cut to 60 runes and path or shell reserved
// characters are replaced.
func SafeSubject(subject string) string {
	s := strings.ReplaceAll(sanitize.Inline(subject), " ", "_")
	if runes := []rune(s); len(runes) > maxSubjectRunes {
		s = string(runes[:maxSubjectRunes])
	}
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>|`, r) {
			return '_'
		}
		return r
	}, s)
	if s == "" || strings.Trim(s, ".") == "" {
		return "untitled"
	}
	return s
}

// Store writes memo files into a single directory.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path resolves name inside the store. Names containing path separators or
// parent references are rejected.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.Dir, name), nil
}

// Write streams a file through write into a temporary file and renames it
// into place. A write error or an empty result removes the temporary file and
// leaves any previous file untouched.
func (s *Store) Write(name string, write func(io.Writer) error) (string, int64, error) {
	dest, err := s.Path(name)
	if err != nil {
		return "", 0, &WriteError{Path: name, Message: "invalid destination", Cause: err}
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", 0, &WriteError{Path: s.Dir, Message: "failed to create output directory", Cause: err}
	}

	tmpFile, err := os.CreateTemp(s.Dir, ".nfa-*.tmp")
	if err != nil {
		return "", 0, &WriteError{Path: dest, Message: "failed to create temp file", Cause: err}
	}
	tmpPath := tmpFile.Name()

	writeErr := write(tmpFile)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return "", 0, &WriteError{Path: dest, Message: "failed to write document", Cause: writeErr}
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return "", 0, &WriteError{Path: dest, Message: "failed to close temp file", Cause: closeErr}
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, &WriteError{Path: dest, Message: "failed to stat temp file", Cause: err}
	}
	if info.Size() == 0 {
		_ = os.Remove(tmpPath)
		return "", 0, &WriteError{Path: dest, Message: "document is empty"}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, &WriteError{Path: dest, Message: "failed to move document into place", Cause: err}
	}
	return dest, info.Size(), nil
}

// Open opens a stored memo for reading.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// HeaderImageNames are tried in order inside the assets directory.
var HeaderImageNames = []string{"header.png", "header.jpg", "header.jpeg"}

// FindHeaderImage returns the first existing header image: the configured
// path, then the HeaderImageNames inside assetsDir.
func FindHeaderImage(configured, assetsDir string) (string, bool) {
	candidates := make([]string, 0, len(HeaderImageNames)+1)
	if configured != "" {
		candidates = append(candidates, configured)
	}
	if assetsDir != "" {
		for _, name := range HeaderImageNames {
			candidates = append(candidates, filepath.Join(assetsDir, name))
		}
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return path, true
		}
	}
	return "", false
}
