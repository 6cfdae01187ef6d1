package idempotency

import (
	"context"
	"sync"
)

// MemoryLedger keeps entries in process. Used for local runs and tests.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: map[string]string{}}
}

var _ Ledger = (*MemoryLedger)(nil)

func (l *MemoryLedger) Claim(ctx context.Context, key, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.entries[key]; ok && st != StatusFailed {
		return false, nil
	}
	l.entries[key] = StatusInProgress
	return true, nil
}

func (l *MemoryLedger) MarkDone(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = StatusDone
	return nil
}

func (l *MemoryLedger) MarkFailed(ctx context.Context, key, note string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = StatusFailed
	return nil
}
