// Package main provides the nfa_agent CLI: memo generation, editing, batch
// builds, the HTTP API server and history management.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "nfa_agent",
	Short: "Note For Approval builder",
	Long: `nfa_agent drafts single-page "Note For Approval" memos from a short request and
renders them as .docx documents with a fixed layout: header, dated title,
justified body, optional table, closing clause and a 2x2 signature grid.

Configuration is read from --config (YAML or JSON), nfa.yaml in the working
directory, and NFA_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

// newLogger builds the process logger. Verbose runs log at debug level.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
