package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/irlrobot/garlc/pkg/config"
	"github.com/irlrobot/garlc/pkg/handlers"
)

var (
	configPath string
	region     string
	tagKey     string
	chunkSize  int
	jobsTable  string
	noColor    bool
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "garlc",
	Short: "Run the GARLC deployment from a workstation",
	Long: `garlc - operator tool for the GARLC deployment pipeline

garlc runs the same steps as the trigger Lambda function:
  • find the instances tagged for deployment
  • split them into Run Command sized chunks
  • build the artifact's command set
  • dispatch, handing remaining chunks to the helper function

Settings come from flags, then GARLC_* environment variables, then
~/.garlc/config.yaml, then built-in defaults.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.garlc/config.yaml)")
	flags.StringVar(&region, "region", "", "AWS region")
	flags.StringVar(&tagKey, "tag-key", "", "instance tag that opts in to deployments")
	flags.IntVar(&chunkSize, "chunk-size", 0, "instances per Run Command request")
	flags.StringVar(&jobsTable, "jobs-table", "", "DynamoDB table of the progress ledger")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log each API call")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("tag-key") {
		loaded.TagKey = tagKey
	}
	if flags.Changed("chunk-size") {
		loaded.ChunkSize = chunkSize
	}
	if flags.Changed("jobs-table") {
		loaded.JobsTable = jobsTable
	}

	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func logger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func newRuntime(ctx context.Context, function string, auditOut io.Writer) (*handlers.Runtime, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return handlers.NewRuntime(function, cfg, handlers.NewClients(awsCfg), logger(), auditOut)
}
