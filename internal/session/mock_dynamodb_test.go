package session

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory table keyed by session_id. It understands the one condition the
// store issues (order_id = :oid) and the SET expression of RecordStatus.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	getCalls    int
	updateCalls int
	deleteCalls int
	err         error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func keyOf(key map[string]types.AttributeValue) (string, error) {
	attr, ok := key["session_id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing session_id")
	}
	return attr.Value, nil
}

func (m *simpleMock) orderMatches(k string, values map[string]types.AttributeValue) bool {
	item, ok := m.table[k]
	if !ok {
		return false
	}
	stored, ok := item["order_id"].(*types.AttributeValueMemberS)
	want, ok2 := values[":oid"].(*types.AttributeValueMemberS)
	return ok && ok2 && stored.Value == want.Value
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && !m.orderMatches(k, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	item := m.table[k]
	// mirror "SET #s = :s, fulfillment_status = :fs, updated_at = :ua, expires_at = :ea"
	item["status"] = params.ExpressionAttributeValues[":s"]
	item["fulfillment_status"] = params.ExpressionAttributeValues[":fs"]
	item["updated_at"] = params.ExpressionAttributeValues[":ua"]
	item["expires_at"] = params.ExpressionAttributeValues[":ea"]
	return &dyn.UpdateItemOutput{}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.err != nil {
		return nil, m.err
	}
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && !m.orderMatches(k, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(m.table, k)
	return &dyn.DeleteItemOutput{}, nil
}
