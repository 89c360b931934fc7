package push

import (
	"context"

	"github.com/TreeBites/treebites-push/internal/apns"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"go.uber.org/zap"
)

const ProviderAPNs = "apns"

// APNsProvider signs a provider token and hands the payload to the
// dispatcher. With an incomplete credential it reports OutcomeSkipped.
type APNsProvider struct {
	cred       types.PushCredential
	tokens     apns.TokenSource
	dispatcher *apns.Dispatcher
	logger     *zap.Logger
}

// NewAPNsProvider creates the iOS provider. tokens may be nil when the
// credential is incomplete.
func NewAPNsProvider(cred types.PushCredential, tokens apns.TokenSource, dispatcher *apns.Dispatcher) *APNsProvider {
	return &APNsProvider{
		cred:       cred,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger.GetLogger().Desugar().Named("APNsProvider"),
	}
}

func (p *APNsProvider) Name() string { return ProviderAPNs }

func (p *APNsProvider) Send(ctx context.Context, payload types.NotificationPayload) (*Result, error) {
	if missing := p.cred.MissingFields(); len(missing) > 0 || p.tokens == nil {
		p.logger.Warn("APNs not configured, notification skipped",
			zap.Strings("missing", missing),
			zap.String("deviceToken", logger.MaskDeviceToken(payload.DeviceToken)))
		return &Result{Provider: ProviderAPNs, Outcome: OutcomeSkipped}, nil
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	res, err := p.dispatcher.Send(ctx, token, payload)
	if err != nil {
		return nil, err
	}

	outcome := OutcomeDelivered
	if res.Outcome == apns.OutcomeSkipped {
		outcome = OutcomeSkipped
	}
	return &Result{
		Provider:   ProviderAPNs,
		Outcome:    outcome,
		StatusCode: res.StatusCode,
		MessageID:  res.APNsID,
	}, nil
}
