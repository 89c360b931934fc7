package handlers

import (
	"context"

	"github.com/TreeBites/treebites-push/internal/registration"
	"github.com/TreeBites/treebites-push/types"
)

// EventFanout fans a backend event out to the users' devices.
type EventFanout interface {
	HandleEvent(ctx context.Context, event types.PushEvent) (*types.FanoutResult, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
}

// ResolverFactory builds a user resolver for a caller's access token.
type ResolverFactory func(accessToken string) registration.UserResolver
