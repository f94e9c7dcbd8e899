package handlers

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/irlrobot/garlc/pkg/artifact"
	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/config"
	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/fleet"
	"github.com/irlrobot/garlc/pkg/ledger"
	"github.com/irlrobot/garlc/pkg/lifecycle"
	"github.com/irlrobot/garlc/pkg/metrics"
	"github.com/irlrobot/garlc/pkg/pipeline"
)

// CodePipelineAPI covers both the pipeline lookup and the job result calls.
type CodePipelineAPI interface {
	artifact.CodePipelineAPI
	pipeline.CodePipelineAPI
}

// Clients holds one client per AWS service GARLC talks to.
type Clients struct {
	SSM          dispatch.SSMAPI
	Lambda       dispatch.LambdaAPI
	EC2          ec2.DescribeInstancesAPIClient
	S3           s3.ListObjectsV2APIClient
	CodePipeline CodePipelineAPI
	AutoScaling  lifecycle.AutoScalingAPI
	DynamoDB     ledger.DynamoDBAPI
}

// NewClients builds every client from one AWS configuration.
func NewClients(awsCfg aws.Config) *Clients {
	return &Clients{
		SSM:          ssm.NewFromConfig(awsCfg),
		Lambda:       lambdasvc.NewFromConfig(awsCfg),
		EC2:          ec2.NewFromConfig(awsCfg),
		S3:           s3.NewFromConfig(awsCfg),
		CodePipeline: codepipeline.NewFromConfig(awsCfg),
		AutoScaling:  autoscaling.NewFromConfig(awsCfg),
		DynamoDB:     dynamodb.NewFromConfig(awsCfg),
	}
}

// Runtime wires configuration, clients and observability into handlers.
type Runtime struct {
	Function string
	Config   *config.Config
	Clients  *Clients

	Log      *log.Logger
	Audit    *audit.Logger
	Registry *metrics.Registry
	Metrics  *metrics.Recorder
}

// NewRuntime creates a Runtime for the named function. Audit events go to
// auditOut; a nil logger uses log.Default().
func NewRuntime(function string, cfg *config.Config, clients *Clients, logger *log.Logger, auditOut io.Writer) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	reg := metrics.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &Runtime{
		Function: function,
		Config:   cfg,
		Clients:  clients,
		Log:      logger,
		Audit:    audit.NewLogger(auditOut, function, ""),
		Registry: reg,
		Metrics:  rec,
	}, nil
}

// Store returns the progress ledger, a no-op one when no table is configured.
func (r *Runtime) Store() ledger.Store {
	return ledger.New(r.Clients.DynamoDB, r.Config.JobsTable, r.Log)
}

// Engine builds the dispatch engine shared by all handlers.
func (r *Runtime) Engine() *dispatch.Engine {
	completion := NewCompletion(
		pipeline.NewReporter(r.Clients.CodePipeline, r.Log),
		lifecycle.NewSignaler(r.Clients.AutoScaling, r.Log),
		r.Log,
	)
	return dispatch.NewEngine(r.Clients.SSM, r.Clients.Lambda, r.Config.EngineConfig(),
		dispatch.WithCompleter(completion),
		dispatch.WithTracker(ledger.NewTracker(r.Store(), r.Log)),
		dispatch.WithLogger(r.Log),
		dispatch.WithAudit(r.Audit),
		dispatch.WithMetrics(r.Metrics),
	)
}

// Locator builds the instance locator.
func (r *Runtime) Locator() *fleet.Locator {
	return fleet.NewLocator(r.Clients.EC2, r.Config.TagKey, r.Log)
}

// Trigger builds the CodePipeline trigger handler.
func (r *Runtime) Trigger() *Trigger {
	return &Trigger{
		Finder:    r.Locator(),
		Engine:    r.Engine(),
		Reporter:  pipeline.NewReporter(r.Clients.CodePipeline, r.Log),
		ChunkSize: r.Config.ChunkSize,
		Log:       r.Log,
	}
}

// Helper builds the handoff handler.
func (r *Runtime) Helper() *Helper {
	return &Helper{Engine: r.Engine(), Log: r.Log}
}

// Bootstrap builds the lifecycle launch handler.
func (r *Runtime) Bootstrap() *Bootstrap {
	return &Bootstrap{
		Checker:      r.Locator(),
		Artifacts:    artifact.NewFinder(r.Clients.CodePipeline, r.Clients.S3),
		Engine:       r.Engine(),
		Signaler:     lifecycle.NewSignaler(r.Clients.AutoScaling, r.Log),
		PipelineName: r.Config.PipelineName,
		Log:          r.Log,
		Audit:        r.Audit,
	}
}

// LambdaConfig loads configuration from the environment. The helper hands
// off to itself, so its own function name wins over the configured one.
func LambdaConfig(selfHandoff bool) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if selfHandoff {
		if name := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); name != "" {
			cfg.Dispatch.HelperFunction = name
		}
	}
	return cfg, nil
}
