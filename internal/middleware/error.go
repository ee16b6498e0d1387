package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/types"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusFor maps a failure kind to an HTTP status.
func StatusFor(kind types.FailureKind) int {
	if kind == types.FailureInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorHandler turns panics and errors attached with c.Error into JSON
// error responses. Stack traces are logged, never returned.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic serving request",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var ae *types.AnalysisError
		if errors.As(err, &ae) {
			c.JSON(StatusFor(ae.Kind), ErrorResponse{Error: ae.Message, Details: ae.Details})
			return
		}
		logger.Error("unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}
}
