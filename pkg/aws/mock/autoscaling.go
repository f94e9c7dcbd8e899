package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
)

// MockAutoScalingClient records completed lifecycle actions.
type MockAutoScalingClient struct {
	mu sync.Mutex

	Completed []*autoscaling.CompleteLifecycleActionInput

	CompleteLifecycleActionErr   error
	CompleteLifecycleActionCalls int
}

// NewMockAutoScalingClient creates a mock that accepts every signal.
func NewMockAutoScalingClient() *MockAutoScalingClient {
	return &MockAutoScalingClient{}
}

func (m *MockAutoScalingClient) CompleteLifecycleAction(ctx context.Context, params *autoscaling.CompleteLifecycleActionInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CompleteLifecycleActionOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteLifecycleActionCalls++

	if m.CompleteLifecycleActionErr != nil {
		return nil, m.CompleteLifecycleActionErr
	}

	m.Completed = append(m.Completed, params)
	return &autoscaling.CompleteLifecycleActionOutput{}, nil
}
