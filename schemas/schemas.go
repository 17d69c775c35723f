// Package schemas holds the JSON Schema documents for the artifacts the NFA
// builder reads and writes.
package schemas

import "embed"

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Schema file names.
const (
	Signatures        = "signatures.schema.json"
	GenerationRequest = "generation_request.schema.json"
	Violations        = "violations.schema.json"
)
