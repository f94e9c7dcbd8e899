package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// MockLambdaClient records asynchronous invocations.
type MockLambdaClient struct {
	mu sync.Mutex

	Inputs []*lambda.InvokeInput

	// StatusCode returned for successful calls. Defaults to 202.
	StatusCode int32

	InvokeErrs []error
	InvokeErr  error

	InvokeCalls int
}

// NewMockLambdaClient creates a mock that accepts every invocation.
func NewMockLambdaClient() *MockLambdaClient {
	return &MockLambdaClient{StatusCode: 202}
}

func (m *MockLambdaClient) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvokeCalls++
	m.Inputs = append(m.Inputs, params)

	if err := nextErr(&m.InvokeErrs, m.InvokeErr); err != nil {
		return nil, err
	}

	return &lambda.InvokeOutput{StatusCode: m.StatusCode}, nil
}
