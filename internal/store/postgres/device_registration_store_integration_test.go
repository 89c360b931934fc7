//go:build integration

package postgres

import (
	"context"
	"runtime"
	"testing"

	"github.com/TreeBites/treebites-push/db"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgresContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping integration test on Windows - rootless Docker is not supported")
	}
	logger.IsTest = true
	ctx := context.Background()

	pgContainer, err := postgresContainer.Run(ctx,
		"postgres:16-alpine",
		postgresContainer.WithDatabase("testdb"),
		postgresContainer.WithUsername("testuser"),
		postgresContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(connStr))
	// Second run must be a no-op.
	require.NoError(t, db.RunMigrations(connStr))

	pool, err := db.NewPool(ctx, connStr, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestDeviceRegistrationStore_Integration(t *testing.T) {
	pool := setupPostgres(t)
	s := NewDeviceRegistrationStore(pool)
	ctx := context.Background()

	userA, userB := uuid.NewString(), uuid.NewString()

	exists, err := s.Exists(ctx, userA, "tok-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Insert(ctx, &types.DeviceRegistration{UserID: userA, Platform: types.PlatformIOS, Token: "tok-1"}))
	require.NoError(t, s.Insert(ctx, &types.DeviceRegistration{UserID: userB, Platform: types.PlatformAndroid, Token: "tok-2"}))
	// Duplicates are accepted by the schema.
	require.NoError(t, s.Insert(ctx, &types.DeviceRegistration{UserID: userB, Platform: types.PlatformIOS, Token: "tok-1"}))

	exists, err = s.Exists(ctx, userA, "tok-1")
	require.NoError(t, err)
	assert.True(t, exists)

	regs, err := s.ListByUsers(ctx, []string{userA, userB})
	require.NoError(t, err)
	assert.Len(t, regs, 3)

	n, err := s.DeleteToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	regs, err = s.ListByUsers(ctx, []string{userA, userB})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "tok-2", regs[0].Token)
}
