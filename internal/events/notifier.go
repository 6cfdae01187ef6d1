package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/commerce"
)

// MetricCheckoutTransition counts every checkout state change.
const MetricCheckoutTransition = "CheckoutTransition"

// Sender publishes a message body with string attributes.
type Sender interface {
	Send(ctx context.Context, body string, attributes map[string]string, delaySeconds int32) error
}

// Counter records a metric.
type Counter interface {
	Count(ctx context.Context, name string, value float64, dimensions map[string]string) error
}

// Notifier is a checkout.Observer that publishes terminal outcomes and counts transitions.
// Either dependency may be nil. Failures are logged and never affect checkout.
type Notifier struct {
	sender  Sender
	metrics Counter
	logger  *zap.Logger
}

// NewNotifier returns a Notifier.
func NewNotifier(sender Sender, metrics Counter, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, metrics: metrics, logger: logger}
}

var _ checkout.Observer = (*Notifier)(nil)

// OnTransition implements checkout.Observer.
func (n *Notifier) OnTransition(ctx context.Context, t checkout.Transition) {
	if n.metrics != nil {
		dims := map[string]string{"State": string(t.To), "Reason": string(t.Reason)}
		if err := n.metrics.Count(ctx, MetricCheckoutTransition, 1, dims); err != nil {
			n.logger.Warn("record checkout metric failed", zap.String("state", string(t.To)), zap.Error(err))
		}
	}

	typ := eventType(t.To)
	if typ == "" || n.sender == nil {
		return
	}
	ev := CheckoutEvent{
		Type:          typ,
		SessionID:     t.SessionID,
		OrderID:       t.OrderID,
		Reference:     t.Reference,
		Reason:        string(t.Reason),
		CorrelationID: commerce.CorrelationID(ctx),
		OccurredAt:    t.At.UTC(),
	}
	body, err := ev.Encode()
	if err != nil {
		n.logger.Error("encode checkout event failed", zap.Error(err))
		return
	}
	if err := n.sender.Send(ctx, body, ev.Attributes(), 0); err != nil {
		n.logger.Warn("publish checkout event failed",
			zap.String("type", typ),
			zap.String("session_id", t.SessionID),
			zap.String("order_id", t.OrderID),
			zap.Error(err),
		)
	}
}

func eventType(s checkout.State) string {
	switch s {
	case checkout.StateCompleted:
		return TypeCheckoutCompleted
	case checkout.StateFailed:
		return TypeCheckoutFailed
	case checkout.StateCancelled:
		return TypeCheckoutCancelled
	default:
		return ""
	}
}
