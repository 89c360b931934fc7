package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TreeBites/treebites-push/config"
	"github.com/TreeBites/treebites-push/db"
	"github.com/TreeBites/treebites-push/handlers"
	"github.com/TreeBites/treebites-push/internal/apns"
	"github.com/TreeBites/treebites-push/internal/push"
	"github.com/TreeBites/treebites-push/internal/registration"
	"github.com/TreeBites/treebites-push/internal/store"
	"github.com/TreeBites/treebites-push/internal/store/postgres"
	supabasestore "github.com/TreeBites/treebites-push/internal/store/supabase"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/router"
	"github.com/TreeBites/treebites-push/services"
	"github.com/TreeBites/treebites-push/types"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	supa "github.com/supabase-community/supabase-go"
)

// @title TreeBites Push API
// @version 1.0
// @description Push notification dispatch and device token registration for TreeBites.
// @BasePath /
// @securityDefinitions.apikey ServiceKey
// @in header
// @name X-Service-Key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if dump, err := cfg.RedactedYAML(); err == nil {
		log.Debugf("Effective configuration:\n%s", dump)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthOpts := []services.HealthOption{services.WithPushEnabled(cfg.PushEnabled())}

	// Device registrations
	var registrations store.DeviceRegistrationStore
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		dbURL := cfg.Database.URL()
		if err := db.RunMigrations(dbURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		pool, err := db.NewPool(ctx, dbURL, cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		registrations = postgres.NewDeviceRegistrationStore(pool)
		healthOpts = append(healthOpts, services.WithDatabase(pool))
	default:
		client, err := supabasestore.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
		if err != nil {
			log.Fatalf("Failed to initialize Supabase client: %v", err)
		}
		registrations = supabasestore.NewDeviceRegistrationStore(client)
	}
	log.Infow("Device registration store ready", "backend", cfg.Store.Backend)

	var redisClient *redis.Client
	if cfg.RedisRequired() {
		redisOptions := &redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		if cfg.Redis.UseTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(redisOptions)
		defer func() { _ = redisClient.Close() }()
		healthOpts = append(healthOpts, services.WithRedis(redisClient))
	}

	// Push providers
	cred := cfg.APNS.Credential()
	var tokens apns.TokenSource
	if cfg.PushEnabled() {
		signer, err := apns.NewSigner(cred)
		if err != nil {
			// A malformed key surfaces per send as TOKEN_GENERATION_ERROR.
			log.Errorw("Push signing key could not be imported", "error", err)
			tokens = failingTokens{err: err}
		} else {
			tokens = newTokenSource(signer, cfg, redisClient)
		}
	} else {
		log.Warnw("Push credentials incomplete, notifications will be skipped",
			"missing", cred.MissingFields())
	}

	dispatcher := apns.NewDispatcher(cred,
		apns.WithTimeout(cfg.APNS.Timeout()),
		apns.WithLogger(log.Desugar().Named("APNsDispatcher")),
	)
	sender := push.NewRouter(map[types.Platform]push.Provider{
		types.PlatformIOS:     push.NewAPNsProvider(cred, tokens, dispatcher),
		types.PlatformAndroid: push.NewFCMProvider(),
	})

	workerPool := services.NewWorkerPool(cfg.WorkerPool)
	workerPool.Start()
	healthOpts = append(healthOpts, services.WithWorkerPool(workerPool))

	fanout := services.NewFanoutService(registrations, sender, workerPool)
	tracker := registration.NewTracker(nil, registrations,
		registration.WithMaxRetries(cfg.Registration.MaxRetries),
		registration.WithBackoffUnit(cfg.Registration.BackoffUnit()),
		registration.WithWorkerPool(workerPool),
		registration.WithBaseContext(ctx),
	)

	authClient, err := supa.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, &supa.ClientOptions{Schema: "public"})
	if err != nil {
		log.Fatalf("Failed to initialize Supabase auth client: %v", err)
	}
	resolverFor := func(accessToken string) registration.UserResolver {
		return registration.NewSupabaseUserResolver(authClient, accessToken)
	}

	var rateLimiter services.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = services.NewRateLimitService(redisClient)
	}

	healthService := services.NewHealthService(cfg.Server.Version, healthOpts...)

	r := router.SetupRouter(router.Dependencies{
		Config:              cfg,
		HealthHandler:       handlers.NewHealthHandler(healthService),
		NotificationHandler: handlers.NewNotificationHandler(sender, fanout, log.Desugar()),
		DeviceTokenHandler:  handlers.NewDeviceTokenHandler(tracker, resolverFor, log.Desugar()),
		RateLimiter:         rateLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool did not drain", "error", err)
	}
	log.Info("Server exited")
}

// newTokenSource wraps the signer in the configured provider token cache.
func newTokenSource(signer *apns.Signer, cfg *config.Config, redisClient *redis.Client) apns.TokenSource {
	cacheLog := logger.GetLogger().Desugar()
	switch cfg.APNS.TokenCache {
	case config.TokenCacheRedis:
		return apns.NewCachingSigner(signer, apns.NewRedisTokenCache(redisClient), cfg.APNS.TokenTTL(), cacheLog)
	case config.TokenCacheMemory:
		return apns.NewCachingSigner(signer, apns.NewMemoryTokenCache(), cfg.APNS.TokenTTL(), cacheLog)
	default:
		return signer
	}
}

type failingTokens struct{ err error }

func (f failingTokens) Token(context.Context) (apns.ProviderToken, error) {
	return apns.ProviderToken{}, f.err
}
