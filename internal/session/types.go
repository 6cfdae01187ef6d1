package session

import (
	"context"
	"errors"
	"time"
)

// Status values for a stored order reference
const (
	StatusActive  = "ACTIVE"  // order placed, fulfillment not yet observed as final
	StatusSettled = "SETTLED" // delivered or cancelled; the reference is about to be cleared
)

// OrderRef is the only checkout value persisted across reloads: which order a session is tracking.
type OrderRef struct {
	SessionID         string    `dynamodbav:"session_id" json:"session_id"` // PK
	OrderID           string    `dynamodbav:"order_id" json:"order_id"`
	Status            string    `dynamodbav:"status" json:"status"`
	FulfillmentStatus string    `dynamodbav:"fulfillment_status,omitempty" json:"fulfillment_status,omitempty"`
	CreatedAt         time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt         time.Time `dynamodbav:"updated_at" json:"updated_at"`
	ExpiresAt         int64     `dynamodbav:"expires_at" json:"expires_at"` // TTL epoch seconds
}

// ErrOrderMismatch indicates the session no longer references the given order.
var ErrOrderMismatch = errors.New("session references a different order")

// Store persists order references keyed by session id.
type Store interface {
	// SaveOrderRef records orderID as the session's current order, replacing any previous one.
	SaveOrderRef(ctx context.Context, sessionID, orderID string) error
	// GetOrderRef returns (nil, nil) when the session has no stored order.
	GetOrderRef(ctx context.Context, sessionID string) (*OrderRef, error)
	// ClearOrderRef removes the reference only if it still points at orderID. Clearing an absent
	// or replaced reference is not an error.
	ClearOrderRef(ctx context.Context, sessionID, orderID string) error
	// RecordStatus stores the last observed fulfillment status; ErrOrderMismatch if the session
	// references another order or none.
	RecordStatus(ctx context.Context, sessionID, orderID, fulfillment string) error
}
