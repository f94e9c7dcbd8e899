package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
)

// JobFailure is a recorded PutJobFailureResult call.
type JobFailure struct {
	JobID   string
	Type    types.FailureType
	Message string
}

// MockCodePipelineClient records job results and serves pipeline definitions.
type MockCodePipelineClient struct {
	mu sync.Mutex

	// Pipelines maps pipeline name to its artifact store bucket.
	Pipelines map[string]string

	Successes []string
	Failures  []JobFailure

	GetPipelineErr         error
	PutJobSuccessResultErr error
	PutJobFailureResultErr error

	GetPipelineCalls         int
	PutJobSuccessResultCalls int
	PutJobFailureResultCalls int
}

// NewMockCodePipelineClient creates a mock with no pipelines.
func NewMockCodePipelineClient() *MockCodePipelineClient {
	return &MockCodePipelineClient{Pipelines: make(map[string]string)}
}

func (m *MockCodePipelineClient) GetPipeline(ctx context.Context, params *codepipeline.GetPipelineInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPipelineCalls++

	if m.GetPipelineErr != nil {
		return nil, m.GetPipelineErr
	}

	bucket, ok := m.Pipelines[*params.Name]
	if !ok {
		return nil, APIError("PipelineNotFoundException", fmt.Sprintf("pipeline %s not found", *params.Name))
	}

	return &codepipeline.GetPipelineOutput{
		Pipeline: &types.PipelineDeclaration{
			Name: params.Name,
			ArtifactStore: &types.ArtifactStore{
				Location: strPtr(bucket),
				Type:     types.ArtifactStoreTypeS3,
			},
		},
	}, nil
}

func (m *MockCodePipelineClient) PutJobSuccessResult(ctx context.Context, params *codepipeline.PutJobSuccessResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobSuccessResultOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutJobSuccessResultCalls++

	if m.PutJobSuccessResultErr != nil {
		return nil, m.PutJobSuccessResultErr
	}

	m.Successes = append(m.Successes, *params.JobId)
	return &codepipeline.PutJobSuccessResultOutput{}, nil
}

func (m *MockCodePipelineClient) PutJobFailureResult(ctx context.Context, params *codepipeline.PutJobFailureResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobFailureResultOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutJobFailureResultCalls++

	if m.PutJobFailureResultErr != nil {
		return nil, m.PutJobFailureResultErr
	}

	f := JobFailure{JobID: *params.JobId}
	if params.FailureDetails != nil {
		f.Type = params.FailureDetails.Type
		if params.FailureDetails.Message != nil {
			f.Message = *params.FailureDetails.Message
		}
	}
	m.Failures = append(m.Failures, f)
	return &codepipeline.PutJobFailureResultOutput{}, nil
}
