// Package pipeline reports job results back to CodePipeline.
package pipeline

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	"github.com/irlrobot/garlc/pkg/audit"
)

// CodePipelineAPI is the subset of the CodePipeline client used for job results.
type CodePipelineAPI interface {
	PutJobSuccessResult(ctx context.Context, params *codepipeline.PutJobSuccessResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobSuccessResultOutput, error)
	PutJobFailureResult(ctx context.Context, params *codepipeline.PutJobFailureResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobFailureResultOutput, error)
}

// Reporter signals job results. Reports are best effort: errors are logged
// and reflected in the return value only. When ctx carries a dispatch job,
// log lines name it and the result is written to the job's audit log.
type Reporter struct {
	client CodePipelineAPI
	log    *log.Logger
}

// NewReporter creates a Reporter. A nil logger uses log.Default().
func NewReporter(client CodePipelineAPI, logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Reporter{client: client, log: logger}
}

// ReportSuccess marks the pipeline job as succeeded.
func (r *Reporter) ReportSuccess(ctx context.Context, jobID string) bool {
	_, err := r.client.PutJobSuccessResult(ctx, &codepipeline.PutJobSuccessResultInput{
		JobId: aws.String(jobID),
	})
	if err != nil {
		r.log.Printf("Failed to report success for pipeline job %s%s: %v", jobID, dispatchSuffix(ctx), err)
		audit.LoggerFromContext(ctx).LogOperation("put_job_success_result", jobID, audit.ResultFailed, err)
		return false
	}
	r.log.Printf("===SUCCESS=== pipeline job %s%s", jobID, dispatchSuffix(ctx))
	audit.LoggerFromContext(ctx).LogOperation("put_job_success_result", jobID, audit.ResultSuccess, nil)
	return true
}

// ReportFailure marks the pipeline job as failed with message.
func (r *Reporter) ReportFailure(ctx context.Context, jobID, message string) bool {
	_, err := r.client.PutJobFailureResult(ctx, &codepipeline.PutJobFailureResultInput{
		JobId: aws.String(jobID),
		FailureDetails: &types.FailureDetails{
			Type:    types.FailureTypeJobFailed,
			Message: aws.String(message),
		},
	})
	if err != nil {
		r.log.Printf("Failed to report failure for pipeline job %s%s: %v", jobID, dispatchSuffix(ctx), err)
		audit.LoggerFromContext(ctx).LogOperation("put_job_failure_result", jobID, audit.ResultFailed, err)
		return false
	}
	r.log.Printf("===FAILURE=== pipeline job %s%s: %s", jobID, dispatchSuffix(ctx), message)
	audit.LoggerFromContext(ctx).LogOperationWithData("put_job_failure_result", jobID, audit.ResultSuccess, map[string]interface{}{
		"message": message,
	}, nil)
	return true
}

func dispatchSuffix(ctx context.Context) string {
	if id := audit.JobIDFromContext(ctx); id != "" {
		return " (dispatch " + id + ")"
	}
	return ""
}
