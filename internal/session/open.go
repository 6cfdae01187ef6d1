package session

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
)

// Backends accepted by Open.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend   string
	Table     string // dynamodb
	RedisAddr string // redis
	TTL       time.Duration
	DynamoDB  aws.DynamoDBAPI
}

// Open builds the Store named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendDynamoDB:
		if opts.DynamoDB == nil {
			return nil, fmt.Errorf("dynamodb session store needs a dynamodb client")
		}
		return NewDynamoStore(opts.DynamoDB, opts.Table, opts.TTL), nil
	case BackendRedis:
		return NewRedisStore(redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), opts.TTL), nil
	case BackendMemory:
		return NewMemoryStore(opts.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", opts.Backend)
	}
}
