package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/commerce"
	checkoutevents "github.com/imrishuroy/storefront-checkout/internal/events"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/session"
)

// Processor tracks fulfillment of completed checkouts. Each message is one poll; an order that is
// not yet delivered or cancelled is re-enqueued with a delay until maxAttempts is reached.
// SQS may deliver a message more than once, so each (order, attempt) pair is claimed in the
// ledger before it is handled.
type Processor struct {
	tracker     *orders.Tracker
	refs        session.Store
	ledger      idempotency.Ledger
	requeue     checkoutevents.Sender
	maxAttempts int
	delay       time.Duration
	logger      *zap.Logger
}

// NewProcessor creates a worker processor. requeue is normally the same queue the events came from.
func NewProcessor(fetcher orders.Fetcher, refs session.Store, ledger idempotency.Ledger, requeue checkoutevents.Sender, maxAttempts int, delay time.Duration, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		tracker:     orders.NewTracker(fetcher, refs, logger),
		refs:        refs,
		ledger:      ledger,
		requeue:     requeue,
		maxAttempts: maxAttempts,
		delay:       delay,
		logger:      logger,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			p.logger.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	msg, err := checkoutevents.Decode(rec.Body)
	if err != nil {
		return err
	}
	if msg.Type != checkoutevents.TypeCheckoutCompleted || msg.OrderID == "" {
		p.logger.Debug("skipping event", zap.String("type", msg.Type), zap.String("session_id", msg.SessionID))
		return nil
	}

	log := p.logger.With(
		zap.String("session_id", msg.SessionID),
		zap.String("order_id", msg.OrderID),
		zap.Int("attempt", msg.Attempt+1),
	)
	if msg.CorrelationID != "" {
		log = log.With(zap.String("correlation_id", msg.CorrelationID))
		ctx = commerce.WithCorrelationID(ctx, msg.CorrelationID)
	}

	key := fmt.Sprintf("%s#%d", msg.OrderID, msg.Attempt)
	claimed, err := p.ledger.Claim(ctx, key, msg.OrderID)
	if err != nil {
		return fmt.Errorf("claim delivery: %w", err)
	}
	if !claimed {
		log.Info("duplicate delivery, skipping", zap.String("key", key))
		return nil
	}

	if err := p.track(ctx, msg, log); err != nil {
		if mErr := p.ledger.MarkFailed(ctx, key, err.Error()); mErr != nil {
			log.Error("failed to release delivery", zap.Error(mErr))
		}
		return err
	}
	if err := p.ledger.MarkDone(ctx, key); err != nil {
		// the poll itself went through; a redelivery would only repeat it
		log.Warn("failed to mark delivery done", zap.Error(err))
	}
	return nil
}

func (p *Processor) track(ctx context.Context, msg checkoutevents.CheckoutEvent, log *zap.Logger) error {
	// Step 1: fetch the order; a delivered or cancelled order releases the session's reference
	order, err := p.tracker.Track(ctx, msg.SessionID, msg.OrderID)
	if err != nil {
		return fmt.Errorf("track order: %w", err)
	}
	if order.Status.IsTerminal() {
		log.Info("order settled", zap.String("status", order.Status.String()))
		return nil
	}

	// Step 2: remember the latest status for the session
	err = p.refs.RecordStatus(ctx, msg.SessionID, msg.OrderID, order.Status.String())
	if errors.Is(err, session.ErrOrderMismatch) {
		// the session has moved on to another order or the reference expired
		log.Info("session no longer tracks order, stopping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("record fulfillment status: %w", err)
	}

	// Step 3: poll again later
	msg.Attempt++
	if msg.Attempt >= p.maxAttempts {
		log.Warn("giving up on fulfillment tracking", zap.String("status", order.Status.String()))
		return nil
	}
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := p.requeue.Send(ctx, body, msg.Attributes(), int32(p.delay/time.Second)); err != nil {
		return fmt.Errorf("re-enqueue tracking: %w", err)
	}
	log.Debug("order not settled, re-enqueued", zap.String("status", order.Status.String()))
	return nil
}
