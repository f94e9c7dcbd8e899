package handlers

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/irlrobot/garlc/pkg/artifact"
	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/batch"
	"github.com/irlrobot/garlc/pkg/commands"
	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/pipeline"
)

// InstanceFinder lists the instances a deployment targets.
type InstanceFinder interface {
	FindInstances(ctx context.Context) []string
}

// Trigger starts a deployment for a CodePipeline job.
type Trigger struct {
	Finder    InstanceFinder
	Engine    *dispatch.Engine
	Reporter  *pipeline.Reporter
	ChunkSize int

	Clock commands.Clock
	NewID func() string
	Log   *log.Logger
}

func (t *Trigger) defaults() {
	if t.ChunkSize < 1 {
		t.ChunkSize = batch.DefaultSize
	}
	if t.Clock == nil {
		t.Clock = commands.UTC
	}
	if t.NewID == nil {
		t.NewID = audit.NewJobID
	}
	if t.Log == nil {
		t.Log = log.Default()
	}
}

// Handle finds the tagged fleet, builds the command set for the job's
// artifact and dispatches it. The pipeline job learns the result from the
// invocation that dispatches the last chunk. The returned bool reports whether
// dispatch started; the error is set only for events without a job id.
func (t *Trigger) Handle(ctx context.Context, event events.CodePipelineJobEvent) (bool, error) {
	t.defaults()

	cpJob := event.CodePipelineJob
	if cpJob.ID == "" {
		t.Log.Printf("Could not retrieve CodePipeline Job ID!")
		return false, &dispatch.ValidationError{Field: "CodePipeline.job.id", Reason: "missing"}
	}
	t.Log.Printf("Triggered by CodePipeline job %s", cpJob.ID)

	url, err := artifact.FromPipelineEvent(cpJob)
	if err != nil {
		t.Log.Printf("%s %v", MsgNoArtifact, err)
		t.Reporter.ReportFailure(ctx, cpJob.ID, MsgNoArtifact)
		return false, nil
	}

	ids := t.Finder.FindInstances(ctx)
	t.Log.Printf("Instance IDs: %v", ids)
	if len(ids) == 0 {
		t.Reporter.ReportFailure(ctx, cpJob.ID, MsgNoInstances)
		return false, nil
	}

	job := dispatch.NewJob(t.NewID(), batch.Split(ids, t.ChunkSize), commands.Build(url, t.Clock()))
	job.PipelineJobID = cpJob.ID
	t.Log.Printf("Job %s: %d instance(s) in %d chunk(s)", job.ID, len(ids), job.TotalChunks)

	return t.Engine.Handle(ctx, job), nil
}
