package engine

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := newRedisCache(db, time.Minute)
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("insight:PETR4:38.45").SetVal("Strong dividend case.")

		text, ok, err := cache.Get(ctx, "insight:PETR4:38.45")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Strong dividend case.", text)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("insight:VALE3:68.9").RedisNil()

		text, ok, err := cache.Get(ctx, "insight:VALE3:68.9")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, text)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("insight:ITUB4:32.15").SetErr(redis.TxFailedErr)

		_, ok, err := cache.Get(ctx, "insight:ITUB4:32.15")
		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := newRedisCache(db, 10*time.Minute)
	ctx := context.Background()

	mock.ExpectSet("insight:WEGE3:40.1", "Quality growth.", 10*time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, "insight:WEGE3:40.1", "Quality growth."))

	mock.ExpectSet("insight:WEGE3:40.1", "Quality growth.", 10*time.Minute).SetErr(redis.TxFailedErr)
	assert.Error(t, cache.Set(ctx, "insight:WEGE3:40.1", "Quality growth."))

	assert.NoError(t, mock.ExpectationsWereMet())
}
