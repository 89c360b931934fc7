package push

import (
	"context"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/types"
)

const ProviderFCM = "fcm"

// FCMProvider is the Android sender. Android delivery is not available yet,
// so every send fails with UNIMPLEMENTED_PROVIDER.
type FCMProvider struct{}

func NewFCMProvider() *FCMProvider { return &FCMProvider{} }

func (p *FCMProvider) Name() string { return ProviderFCM }

func (p *FCMProvider) Send(_ context.Context, _ types.NotificationPayload) (*Result, error) {
	return nil, apperrors.Unimplemented(ProviderFCM)
}
