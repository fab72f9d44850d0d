package middleware

import (
	"errors"
	"net/http"

	"go-healthcare-frontdesk/internal/delivery/http/response"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			// Cause stays server-side; clients only see the fixed message
			if appErr.Err != nil {
				level := logger.Log.Warn
				if appErr.Code >= http.StatusInternalServerError {
					level = logger.Log.Error
				}
				level("request failed",
					"status", appErr.Code,
					"message", appErr.Message,
					"error", appErr.Err,
					"path", c.FullPath(),
					"request_id", c.GetString(response.RequestIDKey),
				)
			}
			response.Error(c, appErr.Code, appErr.Message, nil)
			return
		}

		logger.Log.Error("unhandled error",
			"error", err,
			"path", c.FullPath(),
			"request_id", c.GetString(response.RequestIDKey),
		)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
