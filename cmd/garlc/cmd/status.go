package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job's progress from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, "cli", nil)
	if err != nil {
		return err
	}

	record, err := rt.Store().Get(ctx, args[0])
	if err != nil {
		return err
	}

	newPrinter(cmd.OutOrStdout(), !noColor).record(record)
	return nil
}
