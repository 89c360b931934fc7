package middleware

import (
	"strconv"

	"github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	Details        string `json:"details,omitempty"`
	Code           string `json:"code,omitempty"` // HTTP status code as string
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

// ErrorHandler renders the last error attached to the context as JSON.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		err := last.Err

		if appError, ok := errors.AsAppError(err); ok {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, string(appError.Type)+" error")

			response := ErrorResponse{
				Type:      string(appError.Type),
				Message:   appError.Message,
				Code:      strconv.Itoa(statusCode),
				RequestID: GetRequestID(c),
			}
			// Gateway bodies carry the rejection reason the caller acts on.
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.DispatchError) {
				response.Details = appError.Detail
			}
			response.UpstreamStatus = appError.UpstreamStatus

			c.JSON(statusCode, response)
			return
		}

		if last.Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, 400, "Request binding error")
			c.JSON(400, ErrorResponse{
				Type:      string(errors.ValidationError),
				Message:   "Failed to bind request",
				Details:   err.Error(),
				Code:      "400",
				RequestID: GetRequestID(c),
			})
			return
		}

		logger.LogHTTPError(c, err, 500, "Unexpected server error")
		response := ErrorResponse{
			Type:      string(errors.ServerError),
			Message:   "Internal Server Error",
			Code:      "500",
			RequestID: GetRequestID(c),
		}
		if gin.IsDebugging() {
			response.Details = err.Error()
		}
		c.JSON(500, response)
	}
}
