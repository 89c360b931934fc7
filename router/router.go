package router

import (
	"time"

	"github.com/TreeBites/treebites-push/config"
	_ "github.com/TreeBites/treebites-push/docs"
	"github.com/TreeBites/treebites-push/handlers"
	"github.com/TreeBites/treebites-push/middleware"
	"github.com/TreeBites/treebites-push/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies holds everything required for setting up routes.
type Dependencies struct {
	Config              *config.Config
	HealthHandler       *handlers.HealthHandler
	NotificationHandler *handlers.NotificationHandler
	DeviceTokenHandler  *handlers.DeviceTokenHandler
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter services.RateLimiter
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Config.Server.Environment != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/v1")
	{
		// Backend-to-backend sends.
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.ServiceAuthMiddleware(deps.Config.Server.ServiceAPIKey))
		{
			notifications.POST("/send", deps.NotificationHandler.SendNotification)
			notifications.POST("/events", deps.NotificationHandler.PublishEvent)
		}

		// The app calls this with the signed-in user's access token.
		deviceTokens := []gin.HandlerFunc{deps.DeviceTokenHandler.RegisterDeviceToken}
		if deps.RateLimiter != nil {
			limit := middleware.EndpointRateLimiter(deps.RateLimiter, deps.Config.RateLimit.DeviceTokensPerMinute, time.Minute)
			deviceTokens = append([]gin.HandlerFunc{limit}, deviceTokens...)
		}
		v1.POST("/device-tokens", deviceTokens...)
	}

	return r
}
