package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MockDynamoDBClient stores items keyed by the string value of KeyName.
type MockDynamoDBClient struct {
	mu sync.Mutex

	KeyName string
	Items   map[string]map[string]types.AttributeValue

	PutItemErrs []error
	PutItemErr  error
	GetItemErr  error

	PutItemCalls int
	GetItemCalls int
}

// NewMockDynamoDBClient creates an empty table keyed by keyName.
func NewMockDynamoDBClient(keyName string) *MockDynamoDBClient {
	return &MockDynamoDBClient{
		KeyName: keyName,
		Items:   make(map[string]map[string]types.AttributeValue),
	}
}

func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutItemCalls++

	if err := nextErr(&m.PutItemErrs, m.PutItemErr); err != nil {
		return nil, err
	}

	if key, ok := params.Item[m.KeyName].(*types.AttributeValueMemberS); ok {
		m.Items[key.Value] = params.Item
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetItemCalls++

	if m.GetItemErr != nil {
		return nil, m.GetItemErr
	}

	key, ok := params.Key[m.KeyName].(*types.AttributeValueMemberS)
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: m.Items[key.Value]}, nil
}
