package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/TreeBites/treebites-push/internal/store"
	"github.com/TreeBites/treebites-push/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool used by the stores.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure DeviceRegistrationStore implements store.DeviceRegistrationStore interface.
var _ store.DeviceRegistrationStore = (*DeviceRegistrationStore)(nil)

// DeviceRegistrationStore implements store.DeviceRegistrationStore for PostgreSQL.
type DeviceRegistrationStore struct {
	db DBTX
}

// NewDeviceRegistrationStore creates a new instance of DeviceRegistrationStore
func NewDeviceRegistrationStore(db DBTX) *DeviceRegistrationStore {
	return &DeviceRegistrationStore{db: db}
}

const existsQuery = `
	SELECT EXISTS (
		SELECT 1 FROM device_tokens WHERE user_id = $1 AND token = $2
	)`

func (s *DeviceRegistrationStore) Exists(ctx context.Context, userID, token string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, existsQuery, userID, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query device token: %w", err)
	}
	return exists, nil
}

const insertQuery = `
	INSERT INTO device_tokens (id, user_id, platform, token, created_at)
	VALUES ($1, $2, $3, $4, $5)`

func (s *DeviceRegistrationStore) Insert(ctx context.Context, reg *types.DeviceRegistration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, insertQuery, reg.ID, reg.UserID, string(reg.Platform), reg.Token, reg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert device token: %w", err)
	}
	return nil
}

const listByUsersQuery = `
	SELECT id, user_id, platform, token, created_at
	FROM device_tokens
	WHERE user_id = ANY($1)
	ORDER BY created_at`

func (s *DeviceRegistrationStore) ListByUsers(ctx context.Context, userIDs []string) ([]*types.DeviceRegistration, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, listByUsersQuery, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var regs []*types.DeviceRegistration
	for rows.Next() {
		var (
			reg      types.DeviceRegistration
			platform string
		)
		if err := rows.Scan(&reg.ID, &reg.UserID, &platform, &reg.Token, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		reg.Platform = types.Platform(platform)
		regs = append(regs, &reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device tokens: %w", err)
	}
	return regs, nil
}

const deleteTokenQuery = `DELETE FROM device_tokens WHERE token = $1`

func (s *DeviceRegistrationStore) DeleteToken(ctx context.Context, token string) (int64, error) {
	tag, err := s.db.Exec(ctx, deleteTokenQuery, token)
	if err != nil {
		return 0, fmt.Errorf("failed to delete device token: %w", err)
	}
	return tag.RowsAffected(), nil
}
