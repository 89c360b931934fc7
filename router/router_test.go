package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TreeBites/treebites-push/config"
	"github.com/TreeBites/treebites-push/handlers"
	"github.com/TreeBites/treebites-push/internal/push"
	"github.com/TreeBites/treebites-push/internal/registration"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

type skipSender struct{}

func (skipSender) Send(context.Context, types.Platform, types.NotificationPayload) (*push.Result, error) {
	return &push.Result{Outcome: push.OutcomeSkipped}, nil
}

type noFanout struct{}

func (noFanout) HandleEvent(context.Context, types.PushEvent) (*types.FanoutResult, error) {
	return &types.FanoutResult{}, nil
}

type upHealth struct{}

func (upHealth) CheckHealth(context.Context) types.HealthCheck {
	return types.HealthCheck{Status: types.HealthStatusUp}
}

func newTestRouter(env config.Environment) *gin.Engine {
	cfg := &config.Config{Server: config.ServerConfig{
		Environment:    env,
		ServiceAPIKey:  "svc-key",
		AllowedOrigins: []string{"*"},
	}}
	tracker := registration.NewTracker(registration.StaticUserResolver(""), nil)
	return SetupRouter(Dependencies{
		Config:              cfg,
		HealthHandler:       handlers.NewHealthHandler(upHealth{}),
		NotificationHandler: handlers.NewNotificationHandler(skipSender{}, noFanout{}, zap.NewNop()),
		DeviceTokenHandler: handlers.NewDeviceTokenHandler(tracker, func(string) registration.UserResolver {
			return registration.StaticUserResolver("")
		}, zap.NewNop()),
	})
}

func TestSetupRouter_Routes(t *testing.T) {
	r := newTestRouter(config.EnvDevelopment)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		headers    map[string]string
		wantStatus int
	}{
		{"liveness", http.MethodGet, "/health/liveness", "", nil, http.StatusOK},
		{"readiness", http.MethodGet, "/health/readiness", "", nil, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", nil, http.StatusOK},
		{"swagger", http.MethodGet, "/swagger/doc.json", "", nil, http.StatusOK},
		{"send without key", http.MethodPost, "/v1/notifications/send", `{"device_token":"a","title":"t"}`, nil, http.StatusUnauthorized},
		{"send with key", http.MethodPost, "/v1/notifications/send", `{"device_token":"a","title":"t"}`,
			map[string]string{"X-Service-Key": "svc-key"}, http.StatusOK},
		{"events with bearer key", http.MethodPost, "/v1/notifications/events", `{"type":"custom","user_ids":["u"],"title":"t"}`,
			map[string]string{"Authorization": "Bearer svc-key"}, http.StatusAccepted},
		{"device token without bearer", http.MethodPost, "/v1/device-tokens", `{"token":"a","platform":"ios"}`, nil, http.StatusUnauthorized},
		{"unknown", http.MethodGet, "/v1/trips", "", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestSetupRouter_Metrics(t *testing.T) {
	r := newTestRouter(config.EnvDevelopment)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}

func TestSetupRouter_NoSwaggerInProduction(t *testing.T) {
	r := newTestRouter(config.EnvProduction)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type denyAll struct{}

func (denyAll) CheckLimit(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return false, 30 * time.Second, nil
}

func TestSetupRouter_RateLimitsDeviceTokens(t *testing.T) {
	cfg := &config.Config{
		Server:    config.ServerConfig{Environment: config.EnvDevelopment, ServiceAPIKey: "svc-key"},
		RateLimit: config.RateLimitConfig{Enabled: true, DeviceTokensPerMinute: 1},
	}
	tracker := registration.NewTracker(registration.StaticUserResolver(""), nil)
	r := SetupRouter(Dependencies{
		Config:              cfg,
		HealthHandler:       handlers.NewHealthHandler(upHealth{}),
		NotificationHandler: handlers.NewNotificationHandler(skipSender{}, noFanout{}, zap.NewNop()),
		DeviceTokenHandler: handlers.NewDeviceTokenHandler(tracker, func(string) registration.UserResolver {
			return registration.StaticUserResolver("")
		}, zap.NewNop()),
		RateLimiter: denyAll{},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/device-tokens", strings.NewReader(`{"token":"a","platform":"ios"}`))
	req.Header.Set("Authorization", "Bearer user-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}
