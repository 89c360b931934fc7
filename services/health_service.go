package services

import (
	"context"
	"time"

	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DBPinger is the part of *pgxpool.Pool used for health checks.
type DBPinger interface {
	Ping(ctx context.Context) error
	Stat() *pgxpool.Stat
}

type runningChecker interface {
	IsRunning() bool
}

type HealthService struct {
	dbPool      DBPinger
	redisClient redis.Cmdable
	workerPool  runningChecker
	pushEnabled bool
	version     string
	log         *zap.SugaredLogger
	startTime   time.Time
}

// HealthOption adds a component to the health report.
type HealthOption func(*HealthService)

func WithDatabase(db DBPinger) HealthOption {
	return func(h *HealthService) { h.dbPool = db }
}

func WithRedis(client redis.Cmdable) HealthOption {
	return func(h *HealthService) { h.redisClient = client }
}

func WithWorkerPool(pool runningChecker) HealthOption {
	return func(h *HealthService) { h.workerPool = pool }
}

// WithPushEnabled reports whether push credentials are configured.
func WithPushEnabled(enabled bool) HealthOption {
	return func(h *HealthService) { h.pushEnabled = enabled }
}

func NewHealthService(version string, opts ...HealthOption) *HealthService {
	h := &HealthService{
		version:   version,
		log:       logger.GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)

	if h.dbPool != nil {
		components["database"] = h.checkDatabase(ctx)
	}
	if h.redisClient != nil {
		components["redis"] = h.checkRedis(ctx)
	}
	if h.workerPool != nil {
		components["worker_pool"] = h.checkWorkerPool()
	}
	components["apns"] = h.checkPush()

	overallStatus := types.HealthStatusUp
	for _, c := range components {
		switch c.Status {
		case types.HealthStatusDown:
			overallStatus = types.HealthStatusDown
		case types.HealthStatusDegraded:
			if overallStatus != types.HealthStatusDown {
				overallStatus = types.HealthStatusDegraded
			}
		}
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkDatabase(ctx context.Context) types.HealthComponent {
	if err := h.dbPool.Ping(ctx); err != nil {
		h.log.Errorw("Database health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Database connection failed",
		}
	}

	stat := h.dbPool.Stat()
	if stat != nil && stat.MaxConns() > 0 &&
		float64(stat.AcquiredConns())/float64(stat.MaxConns()) > 0.8 {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Connection pool near capacity",
		}
	}

	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		// The token cache falls back to signing on every send.
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkWorkerPool() types.HealthComponent {
	if !h.workerPool.IsRunning() {
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Worker pool is not running",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkPush() types.HealthComponent {
	if !h.pushEnabled {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "APNs credentials not configured, notifications are skipped",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}
