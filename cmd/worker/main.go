package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/commerce"
	"github.com/imrishuroy/storefront-checkout/internal/config"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/storefront-checkout/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Commerce.ServiceToken == "" {
		logger.Fatal("COMMERCE_SERVICE_TOKEN is required for the worker")
	}
	if cfg.Events.QueueURL == "" {
		logger.Fatal("CHECKOUT_EVENTS_QUEUE_URL is required for the worker")
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	refs, err := session.Open(session.Options{
		Backend:   cfg.Session.Store,
		Table:     cfg.Session.Table,
		RedisAddr: cfg.Session.RedisAddr,
		TTL:       cfg.Session.TTL,
		DynamoDB:  clients.DynamoDB,
	})
	if err != nil {
		logger.Fatal("failed to init session store", zap.Error(err))
	}

	ledger, err := idempotency.Open(idempotency.Options{
		Backend:   cfg.Session.Store,
		Table:     cfg.Tracking.LedgerTable,
		RedisAddr: cfg.Session.RedisAddr,
		TTL:       cfg.Session.TTL,
		DynamoDB:  clients.DynamoDB,
	})
	if err != nil {
		logger.Fatal("failed to init delivery ledger", zap.Error(err))
	}

	client, err := commerce.NewClient(cfg.Commerce.BaseURL, commerce.StaticToken(cfg.Commerce.ServiceToken), cfg.Commerce.Timeout, logger)
	if err != nil {
		logger.Fatal("failed to init commerce client", zap.Error(err))
	}

	p := NewProcessor(client, refs, ledger, aws.NewPublisher(clients.SQS, cfg.Events.QueueURL), cfg.Tracking.MaxAttempts, cfg.Tracking.Delay, logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"type":"checkout.completed","session_id":"local-session-1","order_id":"local-order-1"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{
					Body: testBody,
				},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(p.Handle)
}
