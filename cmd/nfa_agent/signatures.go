package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/observability"
	"github.com/jonathan/nfa-builder/internal/signatures"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "Inspect and manage signatories",
}

var signaturesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the signature grid the next build would use",
	Args:  cobra.NoArgs,
	RunE:  runSignaturesShow,
}

var signaturesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the database signatories with a JSON or YAML store",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignaturesImport,
}

func init() {
	signaturesCmd.AddCommand(signaturesShowCmd, signaturesImportCmd)
	rootCmd.AddCommand(signaturesCmd)
}

func runSignaturesShow(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	layout := signatures.Resolve(cmd.Context(), a.signatures, a.defaults, a.logger)
	observability.NewPrinter(cmd.OutOrStdout()).PrintSignatures(layout)
	return nil
}

func runSignaturesImport(cmd *cobra.Command, args []string) error {
	records, err := signatures.NewFileStore(args[0]).Load(cmd.Context())
	if err != nil {
		return err
	}
	// An incomplete store would silently fall back to defaults on every build.
	layout, err := signatures.Layout(records)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDatabase(); err != nil {
		return err
	}

	rows := signatures.ToRows(records)
	if err := a.database.ReplaceSignatories(cmd.Context(), rows); err != nil {
		return err
	}
	a.logger.Info("imported signatories", zap.String("file", args[0]), zap.Int("rows", len(rows)))
	observability.NewPrinter(cmd.OutOrStdout()).PrintSignatures(layout)
	return nil
}
