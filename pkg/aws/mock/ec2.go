package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// MockEC2Client serves DescribeInstances from preloaded pages.
type MockEC2Client struct {
	mu sync.Mutex

	// Pages are returned in order, linked by NextToken.
	Pages [][]types.Reservation

	Inputs []*ec2.DescribeInstancesInput

	DescribeInstancesErr   error
	DescribeInstancesCalls int
}

// NewMockEC2Client creates a mock with no instances.
func NewMockEC2Client() *MockEC2Client {
	return &MockEC2Client{}
}

// Reservation builds a reservation holding running instances with the given IDs.
func Reservation(ids ...string) types.Reservation {
	r := types.Reservation{}
	for _, id := range ids {
		r.Instances = append(r.Instances, types.Instance{
			InstanceId: strPtr(id),
			State:      &types.InstanceState{Name: types.InstanceStateNameRunning},
		})
	}
	return r
}

func (m *MockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeInstancesCalls++
	m.Inputs = append(m.Inputs, params)

	if m.DescribeInstancesErr != nil {
		return nil, m.DescribeInstancesErr
	}

	i := pageIndex(params.NextToken)
	if i >= len(m.Pages) {
		return &ec2.DescribeInstancesOutput{}, nil
	}

	out := &ec2.DescribeInstancesOutput{Reservations: m.Pages[i]}
	if i+1 < len(m.Pages) {
		out.NextToken = pageToken(i + 1)
	}
	return out, nil
}
