package handlers

import (
	"net/http"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/internal/registration"
	"github.com/TreeBites/treebites-push/middleware"
	"github.com/TreeBites/treebites-push/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceTokenHandler accepts device tokens from the app.
type DeviceTokenHandler struct {
	tracker     *registration.Tracker
	resolverFor ResolverFactory
	logger      *zap.Logger
}

// NewDeviceTokenHandler creates a new DeviceTokenHandler.
func NewDeviceTokenHandler(tracker *registration.Tracker, resolverFor ResolverFactory, logger *zap.Logger) *DeviceTokenHandler {
	return &DeviceTokenHandler{
		tracker:     tracker,
		resolverFor: resolverFor,
		logger:      logger.Named("DeviceTokenHandler"),
	}
}

// RegisterDeviceToken godoc
// @Summary Register a device token
// @Description Stores the token against the signed-in user in the background. Sign-in may still be completing; the user lookup is retried with backoff.
// @Tags device-tokens
// @Accept json
// @Produce json
// @Param body body types.RegisterDeviceTokenRequest true "Device token"
// @Success 202 {object} map[string]string
// @Failure 400 {object} middleware.ErrorResponse "Invalid request body"
// @Failure 401 {object} middleware.ErrorResponse "Missing access token"
// @Failure 503 {object} middleware.ErrorResponse "Registration queue is full"
// @Router /v1/device-tokens [post]
// @Security BearerAuth
func (h *DeviceTokenHandler) RegisterDeviceToken(c *gin.Context) {
	accessToken := middleware.BearerToken(c)
	if accessToken == "" {
		_ = c.Error(apperrors.AuthenticationFailed("missing access token"))
		return
	}

	var req types.RegisterDeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return
	}

	platform := types.Platform(req.Platform)
	tracker := h.tracker.WithResolver(h.resolverFor(accessToken))
	if !tracker.HandleDeviceToken(req.Token, platform) {
		h.logger.Warn("Device token registration dropped", zap.String("platform", req.Platform))
		_ = c.Error(apperrors.New(apperrors.ServerError, "registration queue is full", "").WithStatus(http.StatusServiceUnavailable))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
