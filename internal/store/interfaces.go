package store

import (
	"context"

	"github.com/TreeBites/treebites-push/types"
)

// DeviceRegistrationStore persists device token registrations.
//
// Exists and Insert are separate calls; two registrations racing for the same
// (user, token) pair may both insert. Readers de-duplicate.
type DeviceRegistrationStore interface {
	// Exists reports whether a row with this user and token is present.
	Exists(ctx context.Context, userID, token string) (bool, error)
	// Insert adds reg. ID and CreatedAt are filled in when empty.
	Insert(ctx context.Context, reg *types.DeviceRegistration) error
	// ListByUsers returns every registration belonging to userIDs.
	ListByUsers(ctx context.Context, userIDs []string) ([]*types.DeviceRegistration, error)
	// DeleteToken removes every row holding token and returns how many were removed.
	DeleteToken(ctx context.Context, token string) (int64, error)
}
