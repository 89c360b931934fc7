package db

import (
	"context"
	"testing"

	"github.com/TreeBites/treebites-push/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestConvertToPgx5URL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u:p@localhost/db", "pgx5://u:p@localhost/db"},
		{"pgx5://already", "pgx5://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, convertToPgx5URL(tt.in))
	}
}

func TestMigrationFilesEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_device_tokens.up.sql")
	assert.Contains(t, names, "000001_device_tokens.down.sql")
}

func TestNewPool_ErrorMasksPassword(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://app:s3cret@db:5432/treebites?pool_max_conns=abc", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres://app:***@db:5432/treebites")
}
