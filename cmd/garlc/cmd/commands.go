package cmd

import (
	"github.com/spf13/cobra"

	"github.com/irlrobot/garlc/pkg/commands"
)

var commandsCmd = &cobra.Command{
	Use:   "commands <s3-artifact-url>",
	Short: "Print the commands sent to each instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newPrinter(cmd.OutOrStdout(), !noColor).commands(commands.Build(args[0], commands.UTC()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}
