package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/nfa-builder/internal/observability"
	"github.com/jonathan/nfa-builder/internal/types"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render edited memo text into a document",
	Long: `Builds a document from already edited text without drafting new text. The
request supplies the subject, document type and table; the file is saved with
an "_edited" suffix.`,
	RunE: runRender,
}

var (
	renderRequestFile string
	renderTextFile    string
	renderJSON        bool
)

func init() {
	renderCmd.Flags().StringVarP(&renderRequestFile, "request", "r", "", "Path to the JSON generation request")
	renderCmd.Flags().StringVar(&renderTextFile, "text", "", `Path to the edited text ("-" for stdin)`)
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Print the result as JSON")
	_ = renderCmd.MarkFlagRequired("request")
	_ = renderCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	if renderRequestFile == "-" && renderTextFile == "-" {
		return fmt.Errorf("--request and --text cannot both read stdin")
	}
	req, err := readRequestFile(renderRequestFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	text, err := readInput(renderTextFile, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read text: %w", err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	ctx := withStepBoxes(cmd.Context(), printer, renderJSON)

	result, buildErr := a.builder.BuildFromText(ctx, &types.RenderRequest{GenerationRequest: *req, EditedText: string(text)})
	if err := printBuildResult(cmd, printer, result, renderJSON); err != nil {
		return err
	}
	if buildErr != nil {
		return fmt.Errorf("render failed: %w", buildErr)
	}
	return nil
}
