package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get missing returns nil", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.GetOrderRef(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("save then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOrderRef(ctx, "s1", "o1"))

		rec, err := s.GetOrderRef(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "s1", rec.SessionID)
		assert.Equal(t, "o1", rec.OrderID)
		assert.Equal(t, StatusActive, rec.Status)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.Greater(t, rec.ExpiresAt, time.Now().Unix())
	})

	t.Run("save replaces previous order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOrderRef(ctx, "s1", "o1"))
		require.NoError(t, s.SaveOrderRef(ctx, "s1", "o2"))

		rec, err := s.GetOrderRef(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "o2", rec.OrderID)
	})

	t.Run("clear only matching order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOrderRef(ctx, "s1", "o2"))

		require.NoError(t, s.ClearOrderRef(ctx, "s1", "o1"))
		rec, _ := s.GetOrderRef(ctx, "s1")
		require.NotNil(t, rec, "stale clear must not remove a newer order")

		require.NoError(t, s.ClearOrderRef(ctx, "s1", "o2"))
		rec, _ = s.GetOrderRef(ctx, "s1")
		assert.Nil(t, rec)

		require.NoError(t, s.ClearOrderRef(ctx, "s1", "o2"), "clearing twice is fine")
	})

	t.Run("record status", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveOrderRef(ctx, "s1", "o1"))

		require.NoError(t, s.RecordStatus(ctx, "s1", "o1", "transit"))
		rec, _ := s.GetOrderRef(ctx, "s1")
		assert.Equal(t, "transit", rec.FulfillmentStatus)
		assert.Equal(t, StatusActive, rec.Status)

		require.NoError(t, s.RecordStatus(ctx, "s1", "o1", "delivered"))
		rec, _ = s.GetOrderRef(ctx, "s1")
		assert.Equal(t, StatusSettled, rec.Status)

		err := s.RecordStatus(ctx, "s1", "other", "accepted")
		assert.True(t, errors.Is(err, ErrOrderMismatch))
		err = s.RecordStatus(ctx, "missing", "o1", "accepted")
		assert.True(t, errors.Is(err, ErrOrderMismatch))
	})
}

func TestDynamoStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewDynamoStore(newSimpleMock(), "checkout_sessions", 48*time.Hour)
	})
}

func TestDynamoStore_ExpiredItemIsAbsent(t *testing.T) {
	mock := newSimpleMock()
	s := NewDynamoStore(mock, "checkout_sessions", time.Hour)
	s.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, s.SaveOrderRef(context.Background(), "s1", "o1"))

	s.nowFunc = time.Now
	rec, err := s.GetOrderRef(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 1, mock.getCalls)
}

func TestDynamoStore_WrapsClientErrors(t *testing.T) {
	mock := newSimpleMock()
	mock.err = errors.New("throughput exceeded")
	s := NewDynamoStore(mock, "checkout_sessions", time.Hour)

	assert.ErrorIs(t, s.SaveOrderRef(context.Background(), "s1", "o1"), mock.err)
	_, err := s.GetOrderRef(context.Background(), "s1")
	assert.ErrorIs(t, err, mock.err)
	assert.ErrorIs(t, s.ClearOrderRef(context.Background(), "s1", "o1"), mock.err)
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 48*time.Hour), mr
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, _ := setupTestRedis(t)
		return s
	})
}

func TestRedisStore_AppliesTTL(t *testing.T) {
	s, mr := setupTestRedis(t)
	require.NoError(t, s.SaveOrderRef(context.Background(), "s1", "o1"))

	assert.Equal(t, 48*time.Hour, mr.TTL(redisKey("s1")))

	mr.FastForward(49 * time.Hour)
	rec, err := s.GetOrderRef(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewMemoryStore(48 * time.Hour)
	})
}
