package services

import (
	"context"
	"net/http"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/internal/notification"
	"github.com/TreeBites/treebites-push/internal/push"
	"github.com/TreeBites/treebites-push/internal/store"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"go.uber.org/zap"
)

// FanoutService delivers one notification to every registered device of a
// set of users through the worker pool.
type FanoutService struct {
	store  store.DeviceRegistrationStore
	sender push.Sender
	pool   Submitter
	logger *zap.Logger
}

func NewFanoutService(s store.DeviceRegistrationStore, sender push.Sender, pool Submitter) *FanoutService {
	return &FanoutService{
		store:  s,
		sender: sender,
		pool:   pool,
		logger: logger.GetLogger().Desugar().Named("FanoutService"),
	}
}

// HandleEvent renders event and fans it out to event.UserIDs.
func (s *FanoutService) HandleEvent(ctx context.Context, event types.PushEvent) (*types.FanoutResult, error) {
	content, err := notification.BuildPayload(event)
	if err != nil {
		return nil, err
	}
	return s.NotifyUsers(ctx, event.UserIDs, content)
}

// NotifyUsers queues one send per distinct (platform, token) registered to
// userIDs. Duplicate registration rows never produce duplicate sends.
func (s *FanoutService) NotifyUsers(ctx context.Context, userIDs []string, content notification.Content) (*types.FanoutResult, error) {
	userIDs = uniqueStrings(userIDs)
	result := &types.FanoutResult{}
	if len(userIDs) == 0 {
		return result, nil
	}

	regs, err := s.store.ListByUsers(ctx, userIDs)
	if err != nil {
		return nil, apperrors.Persistence("lookup", err)
	}

	type key struct {
		platform types.Platform
		token    string
	}
	seen := make(map[key]struct{}, len(regs))

	for _, reg := range regs {
		k := key{reg.Platform, reg.Token}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result.Recipients++

		reg := reg
		queued := s.pool.Submit(Job{
			Name: "push:" + string(reg.Platform),
			Execute: func(jobCtx context.Context) error {
				return s.deliver(jobCtx, reg, content)
			},
		})
		if queued {
			result.Queued++
		} else {
			result.Dropped++
		}
	}

	s.logger.Info("Notification fan-out scheduled",
		zap.Int("users", len(userIDs)),
		zap.Int("recipients", result.Recipients),
		zap.Int("queued", result.Queued),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

func (s *FanoutService) deliver(ctx context.Context, reg *types.DeviceRegistration, content notification.Content) error {
	res, err := s.sender.Send(ctx, reg.Platform, content.Payload(reg.Token))
	if err != nil {
		if status, ok := apperrors.UpstreamStatus(err); ok && status == http.StatusGone {
			s.logger.Info("Removing unregistered device token",
				zap.String("userID", reg.UserID),
				zap.String("token", logger.MaskDeviceToken(reg.Token)))
			if _, delErr := s.store.DeleteToken(ctx, reg.Token); delErr != nil {
				s.logger.Error("Failed to remove unregistered device token", zap.Error(delErr))
			}
		}
		return err
	}

	s.logger.Debug("Notification sent",
		zap.String("userID", reg.UserID),
		zap.String("outcome", string(res.Outcome)))
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
