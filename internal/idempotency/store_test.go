package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Claim_Get_MarkDone_MarkFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "checkout_deliveries", 48*time.Hour)

	ctx := context.Background()
	key := "order-123#1"

	claimed, err := s.Claim(ctx, key, "order-123")
	require.NoError(t, err)
	assert.True(t, claimed)

	// duplicate delivery while in progress
	claimed, err = s.Claim(ctx, key, "order-123")
	require.NoError(t, err)
	assert.False(t, claimed)

	rec, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, "order-123", rec.OrderID)

	require.NoError(t, s.MarkFailed(ctx, key, "503 from commerce api"))
	item := mock.table[key]
	require.NotNil(t, item)
	assert.Equal(t, StatusFailed, item["status"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "503 from commerce api", item["note"].(*types.AttributeValueMemberS).Value)

	// a failed delivery can be claimed by its redelivery
	claimed, err = s.Claim(ctx, key, "order-123")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, s.MarkDone(ctx, key))
	assert.Equal(t, StatusDone, mock.table[key]["status"].(*types.AttributeValueMemberS).Value)

	claimed, err = s.Claim(ctx, key, "order-123")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore(newSimpleMock(), "checkout_deliveries", time.Hour)
	rec, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestAttributevalueMarshal_Unmarshal(t *testing.T) {
	rec := Record{
		IdempotencyKey: "k1",
		Status:         StatusInProgress,
		OrderID:        "o1",
		CreatedAt:      time.Now().Round(time.Second),
		UpdatedAt:      time.Now().Round(time.Second),
		ExpiresAt:      time.Now().Add(24 * time.Hour).Unix(),
	}
	m, err := attributevalue.MarshalMap(rec)
	require.NoError(t, err)
	var out Record
	require.NoError(t, attributevalue.UnmarshalMap(m, &out))
	assert.Equal(t, rec.IdempotencyKey, out.IdempotencyKey)
	assert.Equal(t, rec.ExpiresAt, out.ExpiresAt)
}

// exerciseLedger runs the claim lifecycle every backend must honour.
func exerciseLedger(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	ok, err := l.Claim(ctx, "o1#0", "o1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Claim(ctx, "o1#0", "o1")
	require.NoError(t, err)
	assert.False(t, ok, "in-progress key must not be claimed twice")

	require.NoError(t, l.MarkFailed(ctx, "o1#0", "boom"))
	ok, err = l.Claim(ctx, "o1#0", "o1")
	require.NoError(t, err)
	assert.True(t, ok, "failed key is claimable")

	require.NoError(t, l.MarkDone(ctx, "o1#0"))
	ok, err = l.Claim(ctx, "o1#0", "o1")
	require.NoError(t, err)
	assert.False(t, ok, "done key must not be claimed")

	ok, err = l.Claim(ctx, "o1#1", "o1")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")
}

func TestRedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	l := NewRedisLedger(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)

	exerciseLedger(t, l)

	assert.True(t, mr.Exists(ledgerKey("o1#0")))
	assert.Equal(t, time.Hour, mr.TTL(ledgerKey("o1#0")))
}

func TestMemoryLedger(t *testing.T) {
	exerciseLedger(t, NewMemoryLedger())
}

func TestDynamoLedger(t *testing.T) {
	exerciseLedger(t, NewStore(newSimpleMock(), "checkout_deliveries", time.Hour))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := Open(Options{Backend: "redis", RedisAddr: mr.Addr(), TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &RedisLedger{}, l)

	l, err = Open(Options{Backend: "dynamodb", Table: "t", DynamoDB: newSimpleMock()})
	require.NoError(t, err)
	assert.IsType(t, &Store{}, l)

	l, err = Open(Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLedger{}, l)

	_, err = Open(Options{Backend: "dynamodb"})
	assert.Error(t, err)
	_, err = Open(Options{Backend: "postgres"})
	assert.Error(t, err)
}
