package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/internal/notification"
	"github.com/TreeBites/treebites-push/internal/push"
	"github.com/TreeBites/treebites-push/internal/store/mocks"
	"github.com/TreeBites/treebites-push/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// inlineSubmitter runs jobs synchronously, or rejects them when full is set.
type inlineSubmitter struct {
	full bool
	errs []error
}

func (s *inlineSubmitter) Submit(job Job) bool {
	if s.full {
		return false
	}
	s.errs = append(s.errs, job.Execute(context.Background()))
	return true
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []types.NotificationPayload
	errFn func(types.NotificationPayload) error
}

func (r *recordingSender) Send(_ context.Context, _ types.Platform, p types.NotificationPayload) (*push.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
	if r.errFn != nil {
		if err := r.errFn(p); err != nil {
			return nil, err
		}
	}
	return &push.Result{Provider: push.ProviderAPNs, Outcome: push.OutcomeDelivered}, nil
}

func TestFanoutService_DeduplicatesTokens(t *testing.T) {
	st := new(mocks.DeviceRegistrationStore)
	st.On("ListByUsers", mock.Anything, []string{"user-1", "user-2"}).Return([]*types.DeviceRegistration{
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "a"},
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "a"},
		{UserID: "user-2", Platform: types.PlatformIOS, Token: "b"},
		{UserID: "user-2", Platform: types.PlatformAndroid, Token: "b"},
	}, nil)

	sender := &recordingSender{}
	pool := &inlineSubmitter{}
	svc := NewFanoutService(st, sender, pool)

	res, err := svc.HandleEvent(context.Background(), types.PushEvent{
		Type:      types.EventNewPost,
		UserIDs:   []string{"user-1", "user-2", "user-1"},
		PostID:    "abc",
		PostTitle: "Burrito Bowls",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Recipients)
	assert.Equal(t, 3, res.Queued)
	assert.Equal(t, 0, res.Dropped)

	require.Len(t, sender.sent, 3)
	assert.Equal(t, "a", sender.sent[0].DeviceToken)
	assert.Equal(t, notification.TitleNewPost, sender.sent[0].Title)
	assert.Equal(t, "Burrito Bowls", sender.sent[0].Body)
	assert.Equal(t, types.String("abc"), sender.sent[0].CustomData["post_id"])
	st.AssertExpectations(t)
}

func TestFanoutService_DeletesUnregisteredToken(t *testing.T) {
	st := new(mocks.DeviceRegistrationStore)
	st.On("ListByUsers", mock.Anything, []string{"user-1"}).Return([]*types.DeviceRegistration{
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "stale"},
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "fresh"},
	}, nil)
	st.On("DeleteToken", mock.Anything, "stale").Return(int64(1), nil).Once()

	sender := &recordingSender{errFn: func(p types.NotificationPayload) error {
		if p.DeviceToken == "stale" {
			return apperrors.Dispatch(410, `{"reason":"Unregistered"}`)
		}
		return nil
	}}
	pool := &inlineSubmitter{}
	svc := NewFanoutService(st, sender, pool)

	res, err := svc.NotifyUsers(context.Background(), []string{"user-1"}, notification.Content{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)

	require.Len(t, pool.errs, 2)
	assert.Error(t, pool.errs[0])
	assert.NoError(t, pool.errs[1])
	st.AssertExpectations(t)
}

func TestFanoutService_OtherFailuresKeepToken(t *testing.T) {
	st := new(mocks.DeviceRegistrationStore)
	st.On("ListByUsers", mock.Anything, []string{"user-1"}).Return([]*types.DeviceRegistration{
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "a"},
	}, nil)

	sender := &recordingSender{errFn: func(types.NotificationPayload) error {
		return apperrors.Dispatch(400, `{"reason":"BadDeviceToken"}`)
	}}
	svc := NewFanoutService(st, sender, &inlineSubmitter{})

	_, err := svc.NotifyUsers(context.Background(), []string{"user-1"}, notification.Content{Title: "t"})
	require.NoError(t, err)
	st.AssertNotCalled(t, "DeleteToken", mock.Anything, mock.Anything)
}

func TestFanoutService_QueueFull(t *testing.T) {
	st := new(mocks.DeviceRegistrationStore)
	st.On("ListByUsers", mock.Anything, []string{"user-1"}).Return([]*types.DeviceRegistration{
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "a"},
		{UserID: "user-1", Platform: types.PlatformIOS, Token: "b"},
	}, nil)

	svc := NewFanoutService(st, &recordingSender{}, &inlineSubmitter{full: true})

	res, err := svc.NotifyUsers(context.Background(), []string{"user-1"}, notification.Content{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Queued)
	assert.Equal(t, 2, res.Dropped)
}

func TestFanoutService_Errors(t *testing.T) {
	st := new(mocks.DeviceRegistrationStore)
	st.On("ListByUsers", mock.Anything, []string{"user-1"}).Return(nil, errors.New("db down"))
	svc := NewFanoutService(st, &recordingSender{}, &inlineSubmitter{})

	_, err := svc.NotifyUsers(context.Background(), []string{"user-1"}, notification.Content{Title: "t"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.PersistenceError))

	_, err = svc.HandleEvent(context.Background(), types.PushEvent{Type: types.EventCustom, UserIDs: []string{"user-1"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))

	res, err := svc.NotifyUsers(context.Background(), nil, notification.Content{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Recipients)
}
