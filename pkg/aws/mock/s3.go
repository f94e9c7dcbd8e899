package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockS3Client serves ListObjectsV2 from preloaded pages.
type MockS3Client struct {
	mu sync.Mutex

	Pages [][]types.Object

	ListObjectsV2Err   error
	ListObjectsV2Calls int
}

// NewMockS3Client creates a mock with an empty bucket.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{}
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListObjectsV2Calls++

	if m.ListObjectsV2Err != nil {
		return nil, m.ListObjectsV2Err
	}

	i := pageIndex(params.ContinuationToken)
	if i >= len(m.Pages) {
		return &s3.ListObjectsV2Output{Name: params.Bucket}, nil
	}

	out := &s3.ListObjectsV2Output{Name: params.Bucket, Contents: m.Pages[i]}
	if i+1 < len(m.Pages) {
		out.IsTruncated = boolPtr(true)
		out.NextContinuationToken = pageToken(i + 1)
	}
	return out, nil
}

func boolPtr(b bool) *bool {
	return &b
}
