package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published on the checkout events queue.
const (
	TypeCheckoutCompleted = "checkout.completed"
	TypeCheckoutFailed    = "checkout.failed"
	TypeCheckoutCancelled = "checkout.cancelled"
)

// CheckoutEvent is the payload sent from the API to SQS and consumed by the fulfillment worker.
type CheckoutEvent struct {
	Type          string    `json:"type"`
	SessionID     string    `json:"session_id"`
	OrderID       string    `json:"order_id,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Attempt       int       `json:"attempt"` // fulfillment polls already made by the worker
	OccurredAt    time.Time `json:"occurred_at"`
}

// Attributes returns the SQS message attributes for e.
func (e CheckoutEvent) Attributes() map[string]string {
	return map[string]string{
		"type":           e.Type,
		"session_id":     e.SessionID,
		"order_id":       e.OrderID,
		"correlation_id": e.CorrelationID,
	}
}

// Encode renders e as a message body.
func (e CheckoutEvent) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal checkout event: %w", err)
	}
	return string(b), nil
}

// Decode parses a message body.
func Decode(body string) (CheckoutEvent, error) {
	var e CheckoutEvent
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return CheckoutEvent{}, fmt.Errorf("invalid message body: %w", err)
	}
	if e.Type == "" || e.SessionID == "" {
		return CheckoutEvent{}, fmt.Errorf("invalid message body: missing type or session_id")
	}
	return e, nil
}
