package orders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

// Fetcher reads an order projection by id.
type Fetcher interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// RefClearer forgets the stored order reference of a session once it is no longer needed.
type RefClearer interface {
	ClearOrderRef(ctx context.Context, sessionID, orderID string) error
}

// Tracker observes fulfillment status for display and releases the stored order reference once an
// order reaches a terminal status.
type Tracker struct {
	fetcher Fetcher
	refs    RefClearer
	logger  *zap.Logger
}

// NewTracker returns a Tracker. refs may be nil when nothing is persisted.
func NewTracker(fetcher Fetcher, refs RefClearer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{fetcher: fetcher, refs: refs, logger: logger}
}

// Track fetches the order once. A delivered or cancelled order has its session reference cleared;
// a failure to clear is logged and does not fail the fetch.
func (t *Tracker) Track(ctx context.Context, sessionID, orderID string) (*Order, error) {
	o, err := t.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order %s: %w", orderID, err)
	}
	if !o.Status.IsValid() {
		t.logger.Warn("unknown fulfillment status", zap.String("order_id", orderID), zap.String("status", string(o.Status)))
	}
	if o.Status.IsTerminal() && t.refs != nil && sessionID != "" {
		if err := t.refs.ClearOrderRef(ctx, sessionID, orderID); err != nil {
			t.logger.Warn("clear order ref failed",
				zap.String("session_id", sessionID),
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}
	return o, nil
}

// Watch polls the order every interval, calling fn for each fetched projection, until the order is
// terminal or ctx is done. Transient fetch errors are logged and polling continues; an error of a
// non-retryable kind (auth, not found, rejected) ends the watch and is returned.
func (t *Tracker) Watch(ctx context.Context, sessionID, orderID string, interval time.Duration, fn func(*Order)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last FulfillmentStatus
	for {
		o, err := t.Track(ctx, sessionID, orderID)
		if err != nil {
			if k := apperrors.KindOf(err); k != apperrors.KindUnknown && !k.Retryable() {
				return err
			}
			t.logger.Warn("order poll failed", zap.String("order_id", orderID), zap.Error(err))
		} else {
			if last != "" && !last.CanTransitionTo(o.Status) {
				t.logger.Warn("fulfillment status moved backwards",
					zap.String("order_id", orderID),
					zap.String("from", string(last)),
					zap.String("to", string(o.Status)),
				)
			}
			last = o.Status
			if fn != nil {
				fn(o)
			}
			if o.Status.IsTerminal() {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
