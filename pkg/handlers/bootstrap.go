package handlers

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/commands"
	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/lifecycle"
)

// TagChecker reports whether one instance opted in to deployments.
type TagChecker interface {
	IsTagged(ctx context.Context, instanceID string) bool
}

// ArtifactFinder returns the newest artifact a pipeline produced.
type ArtifactFinder interface {
	FindLatest(ctx context.Context, pipelineName string) (string, error)
}

// Bootstrap configures an instance launched by Auto Scaling with the
// pipeline's latest artifact before the instance enters service.
type Bootstrap struct {
	Checker      TagChecker
	Artifacts    ArtifactFinder
	Engine       *dispatch.Engine
	Signaler     *lifecycle.Signaler
	PipelineName string

	Clock commands.Clock
	NewID func() string
	Log   *log.Logger
	Audit *audit.Logger
}

func (b *Bootstrap) defaults() {
	if b.Clock == nil {
		b.Clock = commands.UTC
	}
	if b.NewID == nil {
		b.NewID = audit.NewJobID
	}
	if b.Log == nil {
		b.Log = log.Default()
	}
}

// Handle dispatches the latest artifact to the launching instance. The
// lifecycle action is always completed with CONTINUE: after the run when a
// run was dispatched, otherwise right away so the instance is not held until
// the hook times out. An event whose detail cannot be parsed is dropped
// without an error, since a retry would carry the same detail.
func (b *Bootstrap) Handle(ctx context.Context, event events.CloudWatchEvent) (bool, error) {
	b.defaults()

	action, err := lifecycle.ParseDetail(event.Detail)
	if err != nil {
		b.Log.Printf("Could not parse lifecycle event %s: %v", event.ID, err)
		b.Audit.LogOperation("bootstrap", event.ID, audit.ResultFailed, err)
		return false, nil
	}
	b.Log.Printf("Instance %s launching in %s", action.InstanceID, action.GroupName)

	if !b.Checker.IsTagged(ctx, action.InstanceID) {
		b.Log.Printf("Instance %s is not tagged for deployment, continuing", action.InstanceID)
		b.Audit.LogOperation("bootstrap", action.InstanceID, audit.ResultSkipped, nil)
		b.Signaler.Continue(ctx, action)
		return true, nil
	}

	url, err := b.Artifacts.FindLatest(ctx, b.PipelineName)
	if err != nil {
		b.Log.Printf("No artifact for pipeline %s: %v", b.PipelineName, err)
		b.Audit.LogOperation("bootstrap", action.InstanceID, audit.ResultFailed, err)
		b.Signaler.Continue(ctx, action)
		return false, nil
	}

	job := dispatch.NewJob(b.NewID(), [][]string{{action.InstanceID}}, commands.Build(url, b.Clock()))
	job.Lifecycle = action
	return b.Engine.Handle(ctx, job), nil
}
