package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nfa-builder/schemas"
)

var schemaFiles = []string{
	schemas.Signatures,
	schemas.GenerationRequest,
	schemas.Violations,
}

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, schemaFile := range schemaFiles {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := schemas.FS.ReadFile(schemaFile)
			require.NoError(t, err, "should be able to read schema file")

			var v map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON: %s", schemaFile)

			_, hasSchema := v["$schema"]
			_, hasType := v["type"]
			assert.True(t, hasSchema, "schema should declare $schema")
			assert.True(t, hasType, "schema should declare a root type")
		})
	}
}

func TestSchemaFiles_Embedded(t *testing.T) {
	entries, err := schemas.FS.ReadDir(".")
	require.NoError(t, err)
	assert.Len(t, entries, len(schemaFiles))
}
