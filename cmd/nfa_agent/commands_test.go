package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nfa-builder/internal/config"
	"github.com/jonathan/nfa-builder/internal/types"
)

func TestGenerateCommand_Flags(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, "", "generate",
		"--subject", "Chess Tournament",
		"--summary", "Annual inter-college chess tournament",
		"--type", "Advance",
		"--bullets")

	require.NoError(t, err, out)
	assert.Contains(t, out, "NFA GENERATED")
	assert.Contains(t, out, "NFA_advance_Chess_Tournament.docx")
	assert.FileExists(t, filepath.Join(ws.outputDir, "NFA_advance_Chess_Tournament.docx"))
}

func TestGenerateCommand_RequestFileJSON(t *testing.T) {
	request := testdata(t, "request.json")
	ws := newWorkspace(t)

	out, err := execute(t, "", "generate", "--request", request, "--json")

	require.NoError(t, err, out)
	var result types.BuildResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.True(t, result.Success)
	assert.Equal(t, "NFA_reimbursement_Chess_Tournament.docx", result.FileName)
	assert.Equal(t, filepath.Join(ws.outputDir, result.FileName), result.FilePath)
	assert.Contains(t, result.PreviewText, "Trophies")
}

func TestGenerateCommand_VerbosePrintsSteps(t *testing.T) {
	newWorkspace(t)

	out, err := execute(t, "", "generate", "-v",
		"--subject", "Chess Tournament",
		"--summary", "Annual inter-college chess tournament")

	require.NoError(t, err, out)
	assert.Contains(t, out, "CLASSIFIED SECTIONS")
	assert.Contains(t, out, "SIGNATURE LAYOUT")
	assert.Contains(t, out, "VIOLATIONS")
}

func TestGenerateCommand_Errors(t *testing.T) {
	invalid := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"subject":"A","nfa_type":"advance"}`), 0o644))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no input", args: []string{"generate"}, wantErr: "either --request or both --subject and --summary"},
		{name: "unknown type", args: []string{"generate", "-s", "A", "--summary", "B", "-t", "loan"}, wantErr: "unknown document type"},
		{name: "schema failure", args: []string{"generate", "--request", invalid}, wantErr: "summary"},
		{name: "missing table", args: []string{"generate", "-s", "A", "--summary", "B", "--table", "nope.json"}, wantErr: "failed to read table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newWorkspace(t)
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEditCommand_WithoutModel(t *testing.T) {
	memo := testdata(t, "memo.txt")
	ws := newWorkspace(t)
	outFile := filepath.Join(ws.dir, "edited.txt")

	out, err := execute(t, "", "edit", "--text", memo, "--prompt", "move to Hall C", "--out", outFile)

	require.NoError(t, err, out)
	assert.Contains(t, out, "Edit not applied")
	written, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(written), "Subject: Chess Tournament"))
	assert.Contains(t, string(written), "[Edit not applied: move to Hall C]")
}

func TestEditCommand_StdinJSON(t *testing.T) {
	newWorkspace(t)

	out, err := execute(t, "Subject: A\n\nBody.\n", "edit", "--text", "-", "--prompt", "shorten", "--json")

	require.NoError(t, err, out)
	var result types.EditResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.False(t, result.Applied)
}

func TestEditCommand_RequiresPrompt(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "", "edit", "--text", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt")
}

func TestRenderCommand(t *testing.T) {
	request := testdata(t, "request.json")
	memo := testdata(t, "memo.txt")
	ws := newWorkspace(t)

	out, err := execute(t, "", "render", "--request", request, "--text", memo)

	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(ws.outputDir, "NFA_reimbursement_Chess_Tournament_edited.docx"))
}

func TestRenderCommand_BothStdin(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "", "render", "--request", "-", "--text", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot both read stdin")
}

func TestBatchCommand(t *testing.T) {
	batch := testdata(t, "batch.json")
	ws := newWorkspace(t)

	out, err := execute(t, "", "batch", "--file", batch, "--limit", "2")

	require.NoError(t, err, out)
	assert.Contains(t, out, "3 of 3 succeeded")
	for _, name := range []string{
		"NFA_reimbursement_Chess_Tournament.docx",
		"NFA_advance_Robotics_Workshop.docx",
		"NFA_advance_Cultural_Night.docx",
	} {
		assert.FileExists(t, filepath.Join(ws.outputDir, name))
	}
}

func TestBatchCommand_InvalidItem(t *testing.T) {
	batch := testdata(t, "batch_invalid.json")
	ws := newWorkspace(t)

	_, err := execute(t, "", "batch", "--file", batch)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2")
	assert.NoDirExists(t, ws.outputDir, "no build starts when an item is invalid")
}

func TestSignaturesShow(t *testing.T) {
	newWorkspace(t, "signatures_file: $TESTDATA/signatures.yaml")

	out, err := execute(t, "", "signatures", "show")

	require.NoError(t, err, out)
	assert.Contains(t, out, "Dr A. Rao")
	assert.Contains(t, out, "Prof C. Menon")
}

func TestSignaturesShow_Defaults(t *testing.T) {
	newWorkspace(t, "signatories:", "  top_left:", "    name: Dr Q. Khan")

	out, err := execute(t, "", "signatures", "show")

	require.NoError(t, err, out)
	assert.Contains(t, out, "Dr Q. Khan")
	assert.Contains(t, out, "Head of Finance")
}

func TestDatabaseCommands_RequireDatabase(t *testing.T) {
	sigFile := testdata(t, "signatures.yaml")

	for _, args := range [][]string{
		{"history"},
		{"history", "set-status", "4b7d2c1e-8f3a-4c5b-9d6e-1a2b3c4d5e6f", "approved"},
		{"signatures", "import", sigFile},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			newWorkspace(t)
			_, err := execute(t, "", args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "requires a database")
		})
	}
}

func TestHistoryCommand_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "bad approval filter", args: []string{"history", "--approval", "archived"}, wantErr: "invalid --approval"},
		{name: "bad run id", args: []string{"history", "set-status", "42", "approved"}, wantErr: "invalid run id"},
		{name: "bad status", args: []string{"history", "set-status", "4b7d2c1e-8f3a-4c5b-9d6e-1a2b3c4d5e6f", "archived"}, wantErr: "invalid status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newWorkspace(t)
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSignaturesImport_RejectsIncompleteStore(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signatures:\n  prepared_by:\n    - name: A\n      designation: B\n"), 0o644))

	_, err := execute(t, "", "signatures", "import", path)
	require.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	newWorkspace(t)
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("PASSWORD_PEPPER", "")

	out, err := execute(t, "correct horse\n", "hash-password")

	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	passwords := &config.PasswordConfig{BcryptCost: 10}
	assert.True(t, passwords.VerifyPassword("correct horse", hash))
	assert.False(t, passwords.VerifyPassword("correct horse\n", hash))
}

func TestHashPasswordCommand_Empty(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "", "hash-password")
	require.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	newWorkspace(t, "max_bullets: -1")

	_, err := loadConfig("")

	var validationErr *config.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "max_bullets", validationErr.Field)
}
