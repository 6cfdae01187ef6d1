package idempotency

import (
	"context"
	"time"
)

// Status values for ledger entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED" // may be claimed again
)

// Record is the shape persisted in the idempotency DynamoDB table.
type Record struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

// Ledger records which deliveries of an at-least-once queue have been handled.
type Ledger interface {
	// Claim marks key in progress. It returns false when key is already in progress or done.
	Claim(ctx context.Context, key, orderID string) (bool, error)
	// MarkDone records that key was handled.
	MarkDone(ctx context.Context, key string) error
	// MarkFailed releases key so a redelivery can claim it again.
	MarkFailed(ctx context.Context, key, note string) error
}
