package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_CheckLimit(t *testing.T) {
	ctx := context.Background()
	key := "treebites:rate_limit:device-tokens:ip:10.0.0.1"

	t.Run("first request opens the window", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectIncr(key).SetVal(1)
		mock.ExpectExpire(key, time.Minute).SetVal(true)

		allowed, retry, err := NewRateLimitService(client).CheckLimit(ctx, "device-tokens:ip:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Zero(t, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("within budget", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectIncr(key).SetVal(2)

		allowed, _, err := NewRateLimitService(client).CheckLimit(ctx, "device-tokens:ip:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over budget", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectIncr(key).SetVal(3)
		mock.ExpectTTL(key).SetVal(42 * time.Second)

		allowed, retry, err := NewRateLimitService(client).CheckLimit(ctx, "device-tokens:ip:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 42*time.Second, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over budget without expiry restores the window", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectIncr(key).SetVal(31)
		mock.ExpectTTL(key).SetVal(-1)
		mock.ExpectExpire(key, time.Minute).SetVal(true)

		allowed, retry, err := NewRateLimitService(client).CheckLimit(ctx, "device-tokens:ip:10.0.0.1", 30, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, retry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

		_, _, err := NewRateLimitService(client).CheckLimit(ctx, "device-tokens:ip:10.0.0.1", 2, time.Minute)
		assert.Error(t, err)
	})
}
