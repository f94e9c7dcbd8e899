// Package artifact resolves the deployment bundle a run should fetch.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotFound is returned when no artifact can be located.
var ErrNotFound = errors.New("artifact not found")

// FromPipelineEvent returns the S3 URL of the job's first input artifact.
func FromPipelineEvent(job events.CodePipelineJob) (string, error) {
	if len(job.Data.InputArtifacts) == 0 {
		return "", fmt.Errorf("job %s has no input artifacts: %w", job.ID, ErrNotFound)
	}
	loc := job.Data.InputArtifacts[0].Location.S3Location
	if loc.BucketName == "" || loc.ObjectKey == "" {
		return "", fmt.Errorf("job %s input artifact has no S3 location: %w", job.ID, ErrNotFound)
	}
	return URL(loc.BucketName, loc.ObjectKey), nil
}

// URL formats an s3:// location.
func URL(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// CodePipelineAPI is the subset of the CodePipeline client used to read a
// pipeline's artifact store.
type CodePipelineAPI interface {
	GetPipeline(ctx context.Context, params *codepipeline.GetPipelineInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error)
}

// Finder looks up the newest artifact a pipeline produced. It serves
// instances launched outside a pipeline run.
type Finder struct {
	pipeline CodePipelineAPI
	s3       s3.ListObjectsV2APIClient
}

// NewFinder creates a Finder.
func NewFinder(pipeline CodePipelineAPI, s3Client s3.ListObjectsV2APIClient) *Finder {
	return &Finder{pipeline: pipeline, s3: s3Client}
}

// FindBucket returns the artifact store bucket of the named pipeline.
func (f *Finder) FindBucket(ctx context.Context, pipelineName string) (string, error) {
	out, err := f.pipeline.GetPipeline(ctx, &codepipeline.GetPipelineInput{
		Name: aws.String(pipelineName),
	})
	if err != nil {
		return "", fmt.Errorf("get pipeline %s: %w", pipelineName, err)
	}
	if out.Pipeline == nil || out.Pipeline.ArtifactStore == nil || out.Pipeline.ArtifactStore.Location == nil {
		return "", fmt.Errorf("pipeline %s has no artifact store: %w", pipelineName, ErrNotFound)
	}
	return *out.Pipeline.ArtifactStore.Location, nil
}

// FindNewest returns the S3 URL of the most recently modified object in bucket.
func (f *Finder) FindNewest(ctx context.Context, bucket string) (string, error) {
	var (
		newestKey string
		newest    time.Time
	)

	paginator := s3.NewListObjectsV2Paginator(f.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if newestKey == "" || obj.LastModified.After(newest) {
				newest = *obj.LastModified
				newestKey = *obj.Key
			}
		}
	}

	if newestKey == "" {
		return "", fmt.Errorf("bucket %s is empty: %w", bucket, ErrNotFound)
	}
	return URL(bucket, newestKey), nil
}

// FindLatest resolves the pipeline's bucket and returns its newest object.
func (f *Finder) FindLatest(ctx context.Context, pipelineName string) (string, error) {
	bucket, err := f.FindBucket(ctx, pipelineName)
	if err != nil {
		return "", err
	}
	return f.FindNewest(ctx, bucket)
}
