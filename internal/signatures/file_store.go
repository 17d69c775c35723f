package signatures

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/nfa-builder/internal/schemas"
	rootschemas "github.com/jonathan/nfa-builder/schemas"
)

// storeDocument is the on-disk shape shared by JSON and YAML stores.
type storeDocument struct {
	Signatures Records `json:"signatures" yaml:"signatures"`
}

// FileStore reads a JSON or YAML signature file, chosen by extension. The file
// is validated against the signatures schema before it is decoded.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load implements Store. The file is re-read on every call so edits are picked
// up by the next build.
func (s *FileStore) Load(ctx context.Context) (Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature store: %w", err)
	}
	return Parse(data, filepath.Ext(s.Path))
}

// Parse decodes a signature store document. ext selects the format: ".yaml"
// and ".yml" are YAML, anything else is JSON.
func Parse(data []byte, ext string) (Records, error) {
	var doc storeDocument

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse signature store: %w", err)
		}
		if err := schemas.ValidateValue(rootschemas.Signatures, raw); err != nil {
			return nil, fmt.Errorf("signature store failed schema validation: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode signature store: %w", err)
		}
	default:
		if err := schemas.Validate(rootschemas.Signatures, data); err != nil {
			return nil, fmt.Errorf("signature store failed schema validation: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode signature store: %w", err)
		}
	}

	return doc.Signatures, nil
}
