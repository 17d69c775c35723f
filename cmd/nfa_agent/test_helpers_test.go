package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// workspace is an isolated working directory with an nfa.yaml pointing the
// output directory inside it. No database and no API key are visible.
type workspace struct {
	dir       string
	outputDir string
}

func newWorkspace(t *testing.T, extraConfig ...string) workspace {
	t.Helper()
	testdata, err := filepath.Abs("testdata")
	require.NoError(t, err)

	dir := t.TempDir()
	ws := workspace{dir: dir, outputDir: filepath.Join(dir, "output")}

	lines := append([]string{fmt.Sprintf("output_dir: %s", ws.outputDir)}, extraConfig...)
	cfg := strings.ReplaceAll(strings.Join(lines, "\n")+"\n", "$TESTDATA", testdata)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nfa.yaml"), []byte(cfg), 0o644))

	for _, key := range []string{"DATABASE_URL", "NFA_DATABASE_URL", "OPENAI_API_KEY", "GEMINI_API_KEY", "NFA_LLM_API_KEY"} {
		t.Setenv(key, "")
	}
	t.Chdir(dir)
	return ws
}

// testdata returns the absolute path of a fixture. Call it before
// newWorkspace changes the working directory.
func testdata(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return path
}

// execute runs the root command in-process with fresh flag values.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
