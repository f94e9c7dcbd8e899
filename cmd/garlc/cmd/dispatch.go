package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/batch"
	"github.com/irlrobot/garlc/pkg/commands"
	"github.com/irlrobot/garlc/pkg/dispatch"
)

var (
	dispatchTimeout     time.Duration
	chunksPerInvocation int
	auditLog            bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <s3-artifact-url>",
	Short: "Deploy an artifact to every tagged instance",
	Long: `Deploy an artifact to every tagged instance.

The first chunks are sent from this process; whatever remains is handed to
the helper Lambda function exactly as the trigger function would.`,
	Args: cobra.ExactArgs(1),
	RunE: runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)

	dispatchCmd.Flags().DurationVar(&dispatchTimeout, "timeout", 5*time.Minute, "time budget for the local step")
	dispatchCmd.Flags().IntVar(&chunksPerInvocation, "chunks", 0, "chunks to send locally before handing off")
	dispatchCmd.Flags().BoolVar(&auditLog, "audit", false, "write JSON audit events to stderr")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if cmd.Flags().Changed("chunks") {
		cfg.Dispatch.ChunksPerInvocation = chunksPerInvocation
	}

	var auditOut io.Writer
	if auditLog {
		auditOut = os.Stderr
	}
	rt, err := newRuntime(ctx, "cli", auditOut)
	if err != nil {
		return err
	}

	ids, err := rt.Locator().FindInstancesE(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no running instances tagged %s", cfg.TagKey)
	}

	job := dispatch.NewJob(audit.NewJobID(), batch.Split(ids, cfg.ChunkSize), commands.Build(args[0], commands.UTC()))

	p := newPrinter(cmd.OutOrStdout(), !noColor)
	p.summary("Job %s: %d instance(s) in %d chunk(s)\n", job.ID, len(ids), job.TotalChunks)

	ok := rt.Engine().Handle(ctx, job)

	samples, err := rt.Registry.Snapshot()
	if err != nil {
		return err
	}
	p.metrics(samples)

	if !ok {
		return fmt.Errorf("job %s did not complete its first step", job.ID)
	}
	if job.Remaining() > 0 {
		p.summary("%d chunk(s) handed off to %s\n", job.Remaining(), cfg.Dispatch.HelperFunction)
	}
	return nil
}
