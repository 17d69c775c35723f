package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/nfa-builder/internal/observability"
	"github.com/jonathan/nfa-builder/internal/types"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Apply a free-text edit to memo text",
	Long: `Applies an instruction such as "change the venue to Hall B" to existing memo
text. The subject line and closing clause are kept unless the instruction
names them. If the edit cannot be applied the original text is returned with
a marker appended.

The result is text only; use "render" to turn it into a document.`,
	RunE: runEdit,
}

var (
	editTextFile string
	editPrompt   string
	editOut      string
	editJSON     bool
)

func init() {
	editCmd.Flags().StringVar(&editTextFile, "text", "", `Path to the memo text ("-" for stdin)`)
	editCmd.Flags().StringVarP(&editPrompt, "prompt", "p", "", "Edit instruction")
	editCmd.Flags().StringVarP(&editOut, "out", "o", "", "Write the edited text to this file")
	editCmd.Flags().BoolVar(&editJSON, "json", false, "Print the result as JSON")
	_ = editCmd.MarkFlagRequired("text")
	_ = editCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, _ []string) error {
	text, err := readInput(editTextFile, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read text: %w", err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.builder.Edit(cmd.Context(), &types.EditRequest{Text: string(text), Instruction: editPrompt})
	if err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}

	if editOut != "" {
		if err := os.WriteFile(editOut, []byte(result.EditedText+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", editOut, err)
		}
	}

	if editJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintEdit(result)
	return nil
}
