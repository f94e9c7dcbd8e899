package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "List running instances tagged for deployment",
	Args:  cobra.NoArgs,
	RunE:  runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, "cli", nil)
	if err != nil {
		return err
	}

	ids, err := rt.Locator().FindInstancesE(ctx)
	if err != nil {
		return err
	}

	newPrinter(cmd.OutOrStdout(), !noColor).instances(ids)
	return nil
}
