package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rootschemas "github.com/jonathan/nfa-builder/schemas"
)

const validStore = `{
	"signatures": {
		"prepared_by": [{"name": "A. Rao", "designation": "Coordinator"}],
		"approved_by": [
			{"name": "B. Iyer", "designation": "Head Finance", "order": 1},
			{"name": "C. Menon", "designation": "Vice Chancellor", "order": 2}
		],
		"recommended_by": [{"name": "D. Shah", "designation": "Registrar"}]
	}
}`

func TestValidate_SignatureStore(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid store", doc: validStore},
		{
			name:    "missing approved_by",
			doc:     `{"signatures": {"prepared_by": [{"name": "A", "designation": "B"}], "recommended_by": [{"name": "C", "designation": "D"}]}}`,
			wantErr: true,
		},
		{
			name:    "approved_by without order",
			doc:     `{"signatures": {"prepared_by": [{"name": "A", "designation": "B"}], "approved_by": [{"name": "C", "designation": "D"}], "recommended_by": [{"name": "E", "designation": "F"}]}}`,
			wantErr: true,
		},
		{
			name:    "empty role list",
			doc:     `{"signatures": {"prepared_by": [], "approved_by": [{"name": "C", "designation": "D", "order": 1}], "recommended_by": [{"name": "E", "designation": "F"}]}}`,
			wantErr: true,
		},
		{name: "not an object", doc: `[]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(rootschemas.Signatures, []byte(tt.doc))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Errors)
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(rootschemas.Signatures, []byte(`{"signatures": `))
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", []byte(`{}`))
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "missing.schema.json")
}

func TestValidateValue(t *testing.T) {
	value := map[string]any{
		"subject":      "Chess Tournament",
		"summary":      "Annual inter-college chess tournament",
		"nfa_type":     "Advance",
		"need_bullets": true,
		"table_data":   []any{[]any{"Item", "Amount"}, []any{"Trophies", 5000}},
	}
	require.NoError(t, ValidateValue(rootschemas.GenerationRequest, value))

	value["nfa_type"] = "loan"
	err := ValidateValue(rootschemas.GenerationRequest, value)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "nfa_type", vErr.Errors[0].Field)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`

	require.NoError(t, ValidateJSONString(schema, `{"name": "x"}`))

	err := ValidateJSONString(schema, `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(root)")
}
