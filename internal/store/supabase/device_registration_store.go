// Package supabase stores device registrations through the Supabase REST API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TreeBites/treebites-push/internal/store"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/google/uuid"
	supa "github.com/supabase-community/supabase-go"
)

const (
	tableDeviceTokens = "device_tokens"
	columns           = "id,user_id,platform,token,created_at"
)

var _ store.DeviceRegistrationStore = (*DeviceRegistrationStore)(nil)

// DeviceRegistrationStore implements store.DeviceRegistrationStore over PostgREST.
type DeviceRegistrationStore struct {
	client *supa.Client
}

// NewClient creates a Supabase client authenticated with the service role key.
func NewClient(url, serviceKey string) (*supa.Client, error) {
	client, err := supa.NewClient(url, serviceKey, &supa.ClientOptions{Schema: "public"})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

func NewDeviceRegistrationStore(client *supa.Client) *DeviceRegistrationStore {
	return &DeviceRegistrationStore{client: client}
}

// The REST client does not take a context; callers' cancellation is
// checked before each request.
func (s *DeviceRegistrationStore) Exists(ctx context.Context, userID, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, _, err := s.client.From(tableDeviceTokens).
		Select("id", "", false).
		Eq("user_id", userID).
		Eq("token", token).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to query device token: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("failed to decode device token rows: %w", err)
	}
	return len(rows) > 0, nil
}

func (s *DeviceRegistrationStore) Insert(ctx context.Context, reg *types.DeviceRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}

	_, _, err := s.client.From(tableDeviceTokens).
		Insert(reg, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert device token: %w", err)
	}

	logger.GetLogger().Infow("Stored device token",
		"userID", reg.UserID,
		"platform", reg.Platform,
		"token", logger.MaskDeviceToken(reg.Token))
	return nil
}

func (s *DeviceRegistrationStore) ListByUsers(ctx context.Context, userIDs []string) ([]*types.DeviceRegistration, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, _, err := s.client.From(tableDeviceTokens).
		Select(columns, "", false).
		In("user_id", userIDs).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}

	var regs []*types.DeviceRegistration
	if err := json.Unmarshal(body, &regs); err != nil {
		return nil, fmt.Errorf("failed to decode device tokens: %w", err)
	}
	return regs, nil
}

func (s *DeviceRegistrationStore) DeleteToken(ctx context.Context, token string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	body, _, err := s.client.From(tableDeviceTokens).
		Delete("representation", "").
		Eq("token", token).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to delete device token: %w", err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode deleted rows: %w", err)
	}
	return int64(len(rows)), nil
}
