package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// ErrorHandler renders the last handler error as
// {"error": message, "code": CODE, "details": {...}}. Causes of internal
// errors are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			c.JSON(appErr.HTTPStatus, errorBody(appErr.Message, appErr.Code, appErr.Details))
			return
		}

		logger.Error(c.Request.Context(), "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("Internal server error", apperror.CodeInternal,
			map[string]any{"request_id": c.GetString("request_id")}))
	}
}

func errorBody(message, code string, details map[string]any) gin.H {
	h := gin.H{"error": message, "code": code}
	if len(details) > 0 {
		h["details"] = details
	}
	return h
}
