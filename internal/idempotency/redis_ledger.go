package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimScript sets KEYS[1] to IN_PROGRESS when it is absent or FAILED.
var claimScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and cur ~= ARGV[2] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// RedisLedger is a Ledger for deployments that keep sessions in Redis.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

var _ Ledger = (*RedisLedger)(nil)

func ledgerKey(key string) string { return "checkout:delivery:" + key }

func (l *RedisLedger) Claim(ctx context.Context, key, orderID string) (bool, error) {
	n, err := claimScript.Run(ctx, l.client, []string{ledgerKey(key)}, StatusInProgress, StatusFailed, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return n == 1, nil
}

func (l *RedisLedger) MarkDone(ctx context.Context, key string) error {
	if err := l.client.Set(ctx, ledgerKey(key), StatusDone, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("mark done %s: %w", key, err)
	}
	return nil
}

// MarkFailed drops the note; only the status is kept.
func (l *RedisLedger) MarkFailed(ctx context.Context, key, note string) error {
	if err := l.client.Set(ctx, ledgerKey(key), StatusFailed, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("mark failed %s: %w", key, err)
	}
	return nil
}
