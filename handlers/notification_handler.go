package handlers

import (
	"net/http"

	apperrors "github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/internal/push"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationHandler serves the backend-facing send endpoints.
type NotificationHandler struct {
	sender push.Sender
	fanout EventFanout
	logger *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(sender push.Sender, fanout EventFanout, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		sender: sender,
		fanout: fanout,
		logger: logger.Named("NotificationHandler"),
	}
}

// SendNotification godoc
// @Summary Send a notification to one device
// @Description Signs a provider token and posts the alert to the push gateway. Answers "skipped" when push credentials are not configured.
// @Tags notifications
// @Accept json
// @Produce json
// @Param body body types.SendNotificationRequest true "Notification"
// @Success 200 {object} types.SendNotificationResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid request body"
// @Failure 401 {object} middleware.ErrorResponse "Invalid service key"
// @Failure 500 {object} middleware.ErrorResponse "Provider token could not be generated"
// @Failure 501 {object} middleware.ErrorResponse "Platform provider not implemented"
// @Failure 502 {object} middleware.ErrorResponse "Push gateway rejected the notification"
// @Router /v1/notifications/send [post]
// @Security ServiceKey
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req types.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid request body", err.Error()))
		return
	}

	payload := types.NotificationPayload{
		DeviceToken: req.DeviceToken,
		Title:       req.Title,
		Body:        req.Body,
		Sound:       req.Sound,
		Badge:       req.Badge,
		CustomData:  req.Data,
	}

	res, err := h.sender.Send(c.Request.Context(), types.Platform(req.Platform), payload)
	if err != nil {
		h.logger.Warn("Direct send failed",
			zap.String("deviceToken", logger.MaskDeviceToken(req.DeviceToken)),
			zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, types.SendNotificationResponse{
		Status: string(res.Outcome),
		APNsID: res.MessageID,
	})
}

// PublishEvent godoc
// @Summary Notify users about a backend event
// @Description Renders the event template and queues one send per registered device of each user.
// @Tags notifications
// @Accept json
// @Produce json
// @Param body body types.PushEvent true "Event"
// @Success 202 {object} types.FanoutResult
// @Failure 400 {object} middleware.ErrorResponse "Invalid event"
// @Failure 401 {object} middleware.ErrorResponse "Invalid service key"
// @Failure 500 {object} middleware.ErrorResponse "Device registrations could not be loaded"
// @Router /v1/notifications/events [post]
// @Security ServiceKey
func (h *NotificationHandler) PublishEvent(c *gin.Context) {
	var event types.PushEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid event", err.Error()))
		return
	}

	result, err := h.fanout.HandleEvent(c.Request.Context(), event)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}
