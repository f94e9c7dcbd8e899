package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// MockSSMClient records Run Command requests.
type MockSSMClient struct {
	mu sync.Mutex

	// Inputs holds every SendCommand request in call order, including failed ones.
	Inputs []*ssm.SendCommandInput

	// SendCommandErrs is consumed one entry per call; a nil entry succeeds.
	// When drained, SendCommandErr is returned.
	SendCommandErrs []error
	SendCommandErr  error

	SendCommandCalls int
}

// NewMockSSMClient creates a mock that accepts every request.
func NewMockSSMClient() *MockSSMClient {
	return &MockSSMClient{}
}

func (m *MockSSMClient) SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCommandCalls++
	m.Inputs = append(m.Inputs, params)

	if err := nextErr(&m.SendCommandErrs, m.SendCommandErr); err != nil {
		return nil, err
	}

	return &ssm.SendCommandOutput{
		Command: &types.Command{
			CommandId:    strPtr(fmt.Sprintf("cmd-%04d", m.SendCommandCalls)),
			DocumentName: params.DocumentName,
			InstanceIds:  params.InstanceIds,
			Status:       types.CommandStatusPending,
		},
	}, nil
}

// SentInstances returns the instance sets of the requests that succeeded or
// failed, in call order.
func (m *MockSSMClient) SentInstances() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, 0, len(m.Inputs))
	for _, in := range m.Inputs {
		out = append(out, in.InstanceIds)
	}
	return out
}
