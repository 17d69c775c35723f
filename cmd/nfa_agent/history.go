package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/observability"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded builds",
	Long:  `Lists builds recorded in the database, newest first. Requires database_url.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyStatusCmd = &cobra.Command{
	Use:   "set-status <run-id> <pending|approved|rejected>",
	Short: "Set the approval status of a recorded build",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryStatus,
}

var (
	historyStatus   string
	historyApproval string
	historyLimit    int
	historyJSON     bool
)

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by build status (running, completed, failed)")
	historyCmd.Flags().StringVar(&historyApproval, "approval", "", "Filter by approval status (pending, approved, rejected)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the runs as JSON")
	historyCmd.AddCommand(historyStatusCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyApproval != "" && !db.IsValidApprovalStatus(historyApproval) {
		return fmt.Errorf("invalid --approval %q", historyApproval)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDatabase(); err != nil {
		return err
	}

	runs, err := a.database.ListRuns(cmd.Context(), db.RunFilters{
		Status:         historyStatus,
		ApprovalStatus: historyApproval,
		Limit:          historyLimit,
	})
	if err != nil {
		return err
	}
	if historyJSON {
		return printJSON(cmd.OutOrStdout(), runs)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRuns(runs)
	return nil
}

func runHistoryStatus(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	if !db.IsValidApprovalStatus(args[1]) {
		return fmt.Errorf("invalid status %q (want pending, approved or rejected)", args[1])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDatabase(); err != nil {
		return err
	}

	if err := a.database.UpdateApprovalStatus(cmd.Context(), runID, args[1]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Run %s marked %s\n", runID, args[1])
	return nil
}
