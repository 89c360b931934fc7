// Package registration persists device tokens against the signed-in user,
// waiting for sign-in to finish when the token arrives first.
package registration

import (
	"context"
	"time"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/internal/store"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/services"
	"github.com/TreeBites/treebites-push/types"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffUnit = time.Second
)

// State is a step of one registration.
type State string

const (
	StateAwaitingUser State = "awaiting_user"
	StatePersisting   State = "persisting"
	StateDone         State = "done"
	StateAbandoned    State = "abandoned"
)

// UserResolver returns the id of the signed-in user, or "" when nobody is
// signed in yet.
type UserResolver interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Tracker runs device token registrations.
type Tracker struct {
	resolver    UserResolver
	store       store.DeviceRegistrationStore
	pool        services.Submitter
	baseCtx     context.Context
	maxRetries  int
	backoffUnit time.Duration
	observe     func(State)
	logger      *zap.Logger
}

type Option func(*Tracker)

// WithMaxRetries sets how many times user lookup is retried after the first try.
func WithMaxRetries(n int) Option {
	return func(t *Tracker) { t.maxRetries = n }
}

// WithBackoffUnit sets the linear backoff step; retry n waits n units.
func WithBackoffUnit(d time.Duration) Option {
	return func(t *Tracker) { t.backoffUnit = d }
}

// WithWorkerPool sets where HandleDeviceToken runs registrations.
func WithWorkerPool(pool services.Submitter) Option {
	return func(t *Tracker) { t.pool = pool }
}

// WithBaseContext sets the context for registrations started without a
// worker pool. Cancelling it stops their retries.
func WithBaseContext(ctx context.Context) Option {
	return func(t *Tracker) { t.baseCtx = ctx }
}

// WithStateObserver is called on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(t *Tracker) { t.observe = fn }
}

func NewTracker(resolver UserResolver, s store.DeviceRegistrationStore, opts ...Option) *Tracker {
	t := &Tracker{
		resolver:    resolver,
		store:       s,
		baseCtx:     context.Background(),
		maxRetries:  DefaultMaxRetries,
		backoffUnit: DefaultBackoffUnit,
		logger:      logger.GetLogger().Desugar().Named("RegistrationTracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.maxRetries < 0 {
		t.maxRetries = 0
	}
	if t.baseCtx == nil {
		t.baseCtx = context.Background()
	}
	return t
}

// WithResolver returns a copy of t that resolves the user through r.
func (t *Tracker) WithResolver(r UserResolver) *Tracker {
	cp := *t
	cp.resolver = r
	return &cp
}

// HandleDeviceToken is the entry point for tokens delivered by the platform.
// The registration runs in the worker pool; without a pool it runs in its
// own goroutine bound to the base context. It reports whether the registration was scheduled.
func (t *Tracker) HandleDeviceToken(token string, platform types.Platform) bool {
	run := func(ctx context.Context) error {
		t.Register(ctx, token, platform)
		return nil
	}
	if t.pool == nil {
		go func() { _ = run(t.baseCtx) }()
		return true
	}
	return t.pool.Submit(services.Job{Name: "register-device-token", Execute: run})
}

// Register stores token for the current user and returns the terminal
// state. It never fails: a missing user ends in StateAbandoned, persistence
// errors are logged and end in StateDone.
func (t *Tracker) Register(ctx context.Context, token string, platform types.Platform) State {
	log := t.logger.With(
		zap.String("token", logger.MaskDeviceToken(token)),
		zap.String("platform", string(platform)))

	t.transition(StateAwaitingUser)
	userID, ok := t.awaitUser(ctx, log)
	if !ok {
		t.transition(StateAbandoned)
		return StateAbandoned
	}

	t.transition(StatePersisting)
	t.persist(ctx, log.With(zap.String("userID", userID)), userID, token, platform)
	t.transition(StateDone)
	return StateDone
}

func (t *Tracker) awaitUser(ctx context.Context, log *zap.Logger) (string, bool) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if attempt > t.maxRetries {
				log.Info("No signed-in user, giving up on device token registration",
					zap.Int("retries", t.maxRetries))
				return "", false
			}
			delay := time.Duration(attempt) * t.backoffUnit
			log.Debug("No signed-in user yet, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			if !sleep(ctx, delay) {
				log.Info("Device token registration cancelled", zap.Error(ctx.Err()))
				return "", false
			}
		} else if ctx.Err() != nil {
			return "", false
		}

		userID, err := t.resolver.CurrentUserID(ctx)
		if err != nil {
			log.Warn("Failed to resolve current user", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if userID != "" {
			return userID, true
		}
	}
}

func (t *Tracker) persist(ctx context.Context, log *zap.Logger, userID, token string, platform types.Platform) {
	exists, err := t.store.Exists(ctx, userID, token)
	if err != nil {
		log.Error("Device token lookup failed", zap.Error(apperrors.Persistence("lookup", err)))
		return
	}
	if exists {
		log.Debug("Device token already registered")
		return
	}

	reg := &types.DeviceRegistration{UserID: userID, Platform: platform, Token: token}
	if err := t.store.Insert(ctx, reg); err != nil {
		log.Error("Device token insert failed", zap.Error(apperrors.Persistence("insert", err)))
		return
	}
	log.Info("Device token registered", zap.String("id", reg.ID))
}

func (t *Tracker) transition(s State) {
	if t.observe != nil {
		t.observe(s)
	}
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
