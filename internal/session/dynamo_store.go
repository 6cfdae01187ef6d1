package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
)

// DynamoStore keeps order references in a DynamoDB table keyed by session_id, with TTL on expires_at.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // how long an untouched reference survives
	nowFunc   func() time.Time
}

// NewDynamoStore returns a configured DynamoStore.
// ttlWindow: TTL applied on every write (e.g., 48*time.Hour)
func NewDynamoStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

func (s *DynamoStore) key(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: sessionID},
	}
}

// SaveOrderRef puts a fresh ACTIVE reference for the session.
func (s *DynamoStore) SaveOrderRef(ctx context.Context, sessionID, orderID string) error {
	now := s.nowFunc().UTC()
	rec := OrderRef{
		SessionID: sessionID,
		OrderID:   orderID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal order ref: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// GetOrderRef retrieves the session's reference. Expired items that DynamoDB has not yet swept are
// treated as absent.
func (s *DynamoStore) GetOrderRef(ctx context.Context, sessionID string) (*OrderRef, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(sessionID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec OrderRef
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	if rec.ExpiresAt > 0 && rec.ExpiresAt < s.nowFunc().Unix() {
		return nil, nil
	}
	return &rec, nil
}

// ClearOrderRef deletes the item on condition order_id = :oid.
func (s *DynamoStore) ClearOrderRef(ctx context.Context, sessionID, orderID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:                 &s.tableName,
		Key:                       s.key(sessionID),
		ConditionExpression:       awsString("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":oid": &types.AttributeValueMemberS{Value: orderID}},
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// RecordStatus conditionally updates fulfillment_status while the session still references orderID.
// Terminal statuses mark the reference SETTLED.
func (s *DynamoStore) RecordStatus(ctx context.Context, sessionID, orderID, fulfillment string) error {
	now := s.nowFunc().UTC()
	status := StatusActive
	if orders.FulfillmentStatus(fulfillment).IsTerminal() {
		status = StatusSettled
	}
	input := &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      s.key(sessionID),
		UpdateExpression:         awsString("SET #s = :s, fulfillment_status = :fs, updated_at = :ua, expires_at = :ea"),
		ConditionExpression:      awsString("order_id = :oid"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":   &types.AttributeValueMemberS{Value: status},
			":fs":  &types.AttributeValueMemberS{Value: fulfillment},
			":ua":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":ea":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Add(s.ttlWindow).Unix())},
			":oid": &types.AttributeValueMemberS{Value: orderID},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailed(err) {
			return ErrOrderMismatch
		}
		return fmt.Errorf("update item (record status): %w", err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var sc smithy.APIError
	return errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException"
}

// Helpers
func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
