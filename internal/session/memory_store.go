package session

import (
	"context"
	"sync"
	"time"

	"github.com/imrishuroy/storefront-checkout/internal/orders"
)

// MemoryStore is a process-local Store for RUN_LOCAL development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	refs    map[string]OrderRef
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{refs: map[string]OrderRef{}, ttl: ttl, nowFunc: time.Now}
}

func (m *MemoryStore) SaveOrderRef(ctx context.Context, sessionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc().UTC()
	m.refs[sessionID] = OrderRef{
		SessionID: sessionID,
		OrderID:   orderID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl).Unix(),
	}
	return nil
}

func (m *MemoryStore) GetOrderRef(ctx context.Context, sessionID string) (*OrderRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.refs[sessionID]
	if !ok || rec.ExpiresAt < m.nowFunc().Unix() {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) ClearOrderRef(ctx context.Context, sessionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.refs[sessionID]; ok && rec.OrderID == orderID {
		delete(m.refs, sessionID)
	}
	return nil
}

func (m *MemoryStore) RecordStatus(ctx context.Context, sessionID, orderID, fulfillment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.refs[sessionID]
	if !ok || rec.OrderID != orderID {
		return ErrOrderMismatch
	}
	rec.FulfillmentStatus = fulfillment
	if orders.FulfillmentStatus(fulfillment).IsTerminal() {
		rec.Status = StatusSettled
	}
	rec.UpdatedAt = m.nowFunc().UTC()
	m.refs[sessionID] = rec
	return nil
}
