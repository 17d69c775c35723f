package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/nfa-builder/internal/observability"
	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an NFA document from a request",
	Long: `Drafts the memo text, classifies it into subject, body, bullets and
conclusion, and writes the .docx to the output directory.

The request comes from --request (a JSON file, "-" for stdin) or from the
individual flags.`,
	RunE: runGenerate,
}

var (
	genRequestFile string
	genSubject     string
	genSummary     string
	genType        string
	genBullets     bool
	genTableFile   string
	genJSON        bool
)

func init() {
	generateCmd.Flags().StringVarP(&genRequestFile, "request", "r", "", "Path to a JSON generation request")
	generateCmd.Flags().StringVarP(&genSubject, "subject", "s", "", "Memo subject")
	generateCmd.Flags().StringVar(&genSummary, "summary", "", "Short description of the proposal")
	generateCmd.Flags().StringVarP(&genType, "type", "t", string(types.DocumentReimbursement), "Document type: reimbursement or advance")
	generateCmd.Flags().BoolVarP(&genBullets, "bullets", "b", false, "Include a bullet list of key points")
	generateCmd.Flags().StringVar(&genTableFile, "table", "", "Path to a JSON array of table rows (row 0 is the header)")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	req, err := generateRequest(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	ctx := withStepBoxes(cmd.Context(), printer, genJSON)

	result, buildErr := a.builder.Build(ctx, req)
	if err := printBuildResult(cmd, printer, result, genJSON); err != nil {
		return err
	}
	if buildErr != nil {
		return fmt.Errorf("build failed: %w", buildErr)
	}
	return nil
}

// generateRequest assembles the request from --request or the flags.
func generateRequest(cmd *cobra.Command) (*types.GenerationRequest, error) {
	if genRequestFile != "" {
		return readRequestFile(genRequestFile, cmd.InOrStdin())
	}

	if genSubject == "" || genSummary == "" {
		return nil, fmt.Errorf("either --request or both --subject and --summary must be provided")
	}
	docType, err := types.ParseDocumentType(genType)
	if err != nil {
		return nil, err
	}
	req := &types.GenerationRequest{
		Subject:      genSubject,
		Summary:      genSummary,
		DocumentType: docType,
		WantBullets:  genBullets,
	}
	if genTableFile != "" {
		req.Table, err = readTableFile(genTableFile)
		if err != nil {
			return nil, err
		}
	}
	return req, nil
}

// withStepBoxes prints the classified sections, signature grid and layout
// report as the build reaches them. JSON output stays clean.
func withStepBoxes(ctx context.Context, printer *observability.Printer, quiet bool) context.Context {
	if quiet || !verbose {
		return ctx
	}
	return pipeline.WithProgress(ctx, func(event pipeline.ProgressEvent) {
		switch content := event.Content.(type) {
		case types.ParsedSections:
			printer.PrintSections(&content)
		case types.SignatureLayout:
			printer.PrintSignatures(content)
		case *types.Violations:
			printer.PrintViolations(content)
		}
	})
}

func printBuildResult(cmd *cobra.Command, printer *observability.Printer, result types.BuildResult, asJSON bool) error {
	if asJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}
	printer.PrintResult(result)
	return nil
}
