// Package handlers holds the logic behind each Lambda function. The mains
// under lambda/ only build clients and call lambda.Start.
package handlers

import (
	"context"
	"log"

	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/lifecycle"
	"github.com/irlrobot/garlc/pkg/pipeline"
)

// Failure messages reported to CodePipeline.
const (
	MsgNoInstances     = "No Instance IDs Provided!"
	MsgNoArtifact      = "Couldn't get S3 object!"
	MsgNotAllCompleted = "Not all RunCommand calls completed, see log."
)

// Completion reports a finished job to whoever started it: the CodePipeline
// job, the lifecycle hook, or both. Either collaborator may be nil.
type Completion struct {
	reporter *pipeline.Reporter
	signaler *lifecycle.Signaler
	log      *log.Logger
}

// NewCompletion creates a Completion.
func NewCompletion(reporter *pipeline.Reporter, signaler *lifecycle.Signaler, logger *log.Logger) *Completion {
	if logger == nil {
		logger = log.Default()
	}
	return &Completion{reporter: reporter, signaler: signaler, log: logger}
}

// Complete implements dispatch.Completer.
func (c *Completion) Complete(ctx context.Context, job *dispatch.Job) bool {
	ok := true
	switch {
	case job.PipelineJobID != "" && c.reporter != nil:
		if job.Succeeded() {
			ok = c.reporter.ReportSuccess(ctx, job.PipelineJobID)
		} else {
			for _, f := range job.FailedChunks {
				c.log.Printf("Chunk %d (%d instances) failed: %s", f.Index, len(f.InstanceIDs), f.Reason)
			}
			ok = c.reporter.ReportFailure(ctx, job.PipelineJobID, MsgNotAllCompleted)
		}
	case job.Lifecycle == nil:
		ok = dispatch.LogCompleter{Logger: c.log}.Complete(ctx, job)
	}

	if job.Lifecycle != nil {
		if !job.Succeeded() {
			c.log.Printf("Run Command failed for %s, continuing lifecycle action anyway", job.Lifecycle.InstanceID)
		}
		ok = c.continueLifecycle(ctx, job.Lifecycle) && ok
	}
	return ok
}

// Abort implements dispatch.Completer. The pipeline job fails with reason and
// a held instance is released.
func (c *Completion) Abort(ctx context.Context, job *dispatch.Job, reason string) {
	if job.PipelineJobID != "" && c.reporter != nil {
		c.reporter.ReportFailure(ctx, job.PipelineJobID, "Dispatch aborted: "+reason)
	} else if job.Lifecycle == nil {
		dispatch.LogCompleter{Logger: c.log}.Abort(ctx, job, reason)
	}
	if job.Lifecycle != nil {
		c.continueLifecycle(ctx, job.Lifecycle)
	}
}

func (c *Completion) continueLifecycle(ctx context.Context, a *lifecycle.Action) bool {
	if c.signaler == nil {
		c.log.Printf("No lifecycle signaler configured, cannot complete hook %s for %s", a.HookName, a.InstanceID)
		return false
	}
	return c.signaler.Continue(ctx, a)
}
