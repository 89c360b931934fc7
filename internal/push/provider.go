// Package push routes a rendered notification to the sender for the
// device's platform.
package push

import (
	"context"
	"fmt"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/types"
)

// Outcome is the result class of a send.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeSkipped   Outcome = "skipped"
)

// Result describes a completed send.
type Result struct {
	Provider   string  `json:"provider"`
	Outcome    Outcome `json:"outcome"`
	StatusCode int     `json:"status_code,omitempty"`
	MessageID  string  `json:"message_id,omitempty"`
}

// Provider delivers a notification through one push gateway.
type Provider interface {
	Name() string
	Send(ctx context.Context, payload types.NotificationPayload) (*Result, error)
}

// Sender sends a notification to a device on the given platform.
type Sender interface {
	Send(ctx context.Context, platform types.Platform, payload types.NotificationPayload) (*Result, error)
}

// Router dispatches to a Provider by platform.
type Router struct {
	providers map[types.Platform]Provider
}

// NewRouter builds a router from a platform to provider mapping.
func NewRouter(providers map[types.Platform]Provider) *Router {
	r := &Router{providers: make(map[types.Platform]Provider, len(providers))}
	for platform, p := range providers {
		r.providers[platform] = p
	}
	return r
}

// Send implements Sender. An empty platform is treated as iOS.
func (r *Router) Send(ctx context.Context, platform types.Platform, payload types.NotificationPayload) (*Result, error) {
	if platform == "" {
		platform = types.PlatformIOS
	}
	p, ok := r.providers[platform]
	if !ok {
		return nil, apperrors.ValidationFailed("unsupported platform", fmt.Sprintf("no push provider for platform %q", platform))
	}
	return instrumented(ctx, p, payload)
}
