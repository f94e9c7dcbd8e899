package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irlrobot/garlc/pkg/batch"
)

var splitCmd = &cobra.Command{
	Use:   "split [instance-id...]",
	Short: "Preview how instances are chunked",
	Long: `Preview how instances are chunked for Run Command.

Instance IDs are read from the arguments or, when none are given, one per
line (or whitespace separated) from stdin:

  garlc find --no-color | tail -n +2 | garlc split --chunk-size 25`,
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	ids := args
	if len(ids) == 0 {
		var err error
		if ids, err = readIDs(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no instance IDs given")
	}

	newPrinter(cmd.OutOrStdout(), !noColor).chunks(batch.Split(ids, cfg.ChunkSize))
	return nil
}

func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ids = append(ids, strings.Fields(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instance IDs: %w", err)
	}
	return ids, nil
}
