package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/storefront-checkout/internal/orders"
)

// clearScript deletes the hash only while it still references ARGV[1].
var clearScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'order_id') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// recordScript updates status fields only while the hash references ARGV[1]. Returns 0 on mismatch.
var recordScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'order_id') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'fulfillment_status', ARGV[3], 'updated_at', ARGV[4], 'expires_at', ARGV[5])
redis.call('EXPIRE', KEYS[1], ARGV[6])
return 1
`)

// RedisStore keeps each order reference as a hash with a TTL.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, nowFunc: time.Now}
}

func redisKey(sessionID string) string {
	return fmt.Sprintf("checkout:session:%s", sessionID)
}

func (r *RedisStore) SaveOrderRef(ctx context.Context, sessionID, orderID string) error {
	now := r.nowFunc().UTC()
	key := redisKey(sessionID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			"session_id": sessionID,
			"order_id":   orderID,
			"status":     StatusActive,
			"created_at": now.Format(time.RFC3339),
			"updated_at": now.Format(time.RFC3339),
			"expires_at": now.Add(r.ttl).Unix(),
		})
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save order ref: %w", err)
	}
	return nil
}

func (r *RedisStore) GetOrderRef(ctx context.Context, sessionID string) (*OrderRef, error) {
	fields, err := r.client.HGetAll(ctx, redisKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get order ref: %w", err)
	}

	rec := &OrderRef{
		SessionID:         fields["session_id"],
		OrderID:           fields["order_id"],
		Status:            fields["status"],
		FulfillmentStatus: fields["fulfillment_status"],
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if v := fields["expires_at"]; v != "" {
		if rec.ExpiresAt, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
	}
	return rec, nil
}

func (r *RedisStore) ClearOrderRef(ctx context.Context, sessionID, orderID string) error {
	if err := clearScript.Run(ctx, r.client, []string{redisKey(sessionID)}, orderID).Err(); err != nil {
		return fmt.Errorf("redis clear order ref: %w", err)
	}
	return nil
}

func (r *RedisStore) RecordStatus(ctx context.Context, sessionID, orderID, fulfillment string) error {
	now := r.nowFunc().UTC()
	status := StatusActive
	if orders.FulfillmentStatus(fulfillment).IsTerminal() {
		status = StatusSettled
	}

	n, err := recordScript.Run(ctx, r.client, []string{redisKey(sessionID)},
		orderID,
		status,
		fulfillment,
		now.Format(time.RFC3339),
		now.Add(r.ttl).Unix(),
		int64(r.ttl/time.Second),
	).Int()
	if err != nil {
		return fmt.Errorf("redis record status: %w", err)
	}
	if n == 0 {
		return ErrOrderMismatch
	}
	return nil
}
