package idempotency

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/session"
)

// Options selects and configures a Ledger backend. Backend names match the session store's.
type Options struct {
	Backend   string
	Table     string // dynamodb
	RedisAddr string // redis
	TTL       time.Duration
	DynamoDB  aws.DynamoDBAPI
}

// Open builds the Ledger named by opts.Backend.
func Open(opts Options) (Ledger, error) {
	switch opts.Backend {
	case session.BackendDynamoDB:
		if opts.DynamoDB == nil {
			return nil, fmt.Errorf("dynamodb ledger needs a dynamodb client")
		}
		return NewStore(opts.DynamoDB, opts.Table, opts.TTL), nil
	case session.BackendRedis:
		return NewRedisLedger(redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), opts.TTL), nil
	case session.BackendMemory:
		return NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
	}
}
