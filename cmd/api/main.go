package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/commerce"
	"github.com/imrishuroy/storefront-checkout/internal/config"
	checkoutevents "github.com/imrishuroy/storefront-checkout/internal/events"
	"github.com/imrishuroy/storefront-checkout/internal/handlers"
	"github.com/imrishuroy/storefront-checkout/internal/session"
)

// sessionMaxIdle is how long an untouched session stays in memory.
const sessionMaxIdle = 2 * time.Hour

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestContext())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterSessionRoutes(r, cfg)

	return r
}

// newSessionStore builds the order reference store selected by SESSION_STORE.
func newSessionStore(cfg *config.Config, clients *aws.AWSClients) (session.Store, error) {
	opts := session.Options{
		Backend:   cfg.Session.Store,
		Table:     cfg.Session.Table,
		RedisAddr: cfg.Session.RedisAddr,
		TTL:       cfg.Session.TTL,
	}
	if clients != nil {
		opts.DynamoDB = clients.DynamoDB
	}
	return session.Open(opts)
}

// newObservers wires checkout events and metrics when they are configured.
func newObservers(cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) []checkout.Observer {
	if clients == nil {
		return nil
	}
	var sender checkoutevents.Sender
	if cfg.Events.QueueURL != "" {
		sender = aws.NewPublisher(clients.SQS, cfg.Events.QueueURL)
	}
	var counter checkoutevents.Counter
	if cfg.Events.MetricsNamespace != "" {
		counter = aws.NewMetrics(clients.CloudWatch, cfg.Events.MetricsNamespace)
	}
	if sender == nil && counter == nil {
		return nil
	}
	return []checkout.Observer{checkoutevents.NewNotifier(sender, counter, logger)}
}

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

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	refs, err := newSessionStore(cfg, clients)
	if err != nil {
		logger.Fatal("failed to init session store", zap.Error(err))
	}

	client, err := commerce.NewClient(cfg.Commerce.BaseURL, commerce.ContextToken{}, cfg.Commerce.Timeout, logger)
	if err != nil {
		logger.Fatal("failed to init commerce client", zap.Error(err))
	}

	r := setupRouter(handlers.HandlerConfig{
		Commerce:  client,
		Refs:      refs,
		Observers: newObservers(cfg, clients, logger),
		Pricing: cart.Pricing{
			FreeDeliveryThreshold: cfg.Pricing.FreeDeliveryThreshold,
			FlatDeliveryFee:       cfg.Pricing.FlatDeliveryFee,
		},
		MaxIdle: sessionMaxIdle,
		Logger:  logger,
	})

	logger.Info("starting storefront checkout api",
		zap.String("environment", cfg.Environment),
		zap.String("session_store", cfg.Session.Store),
		zap.String("aws_region", cfg.AWSRegion),
	)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":" + cfg.Port
		logger.Info("running local server", zap.String("address", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
