package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/nfa-builder/internal/observability"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate several documents concurrently",
	Long: `Reads a JSON array of generation requests and builds them concurrently. One
failed build does not stop the others.`,
	RunE: runBatch,
}

var (
	batchFile  string
	batchLimit int
	batchJSON  bool
)

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", `Path to a JSON array of requests ("-" for stdin)`)
	batchCmd.Flags().IntVarP(&batchLimit, "limit", "l", 0, "Maximum concurrent builds (default: batch_limit from config)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Print the results as JSON")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	reqs, err := readBatchFile(batchFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	limit := batchLimit
	if limit <= 0 {
		limit = a.cfg.BatchLimit
	}

	results := a.builder.BuildBatch(cmd.Context(), reqs, limit)
	if batchJSON {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		observability.NewPrinter(cmd.OutOrStdout()).PrintBatch(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d builds failed", failed, len(results))
	}
	return nil
}
