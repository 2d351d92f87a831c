package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs failed requests. Successful requests are left to metrics.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < 400 {
			return
		}

		attrs := []any{
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}
		if uid, ok := c.Get("userId"); ok {
			attrs = append(attrs, slog.Any("user_id", uid))
		}

		if status >= 500 {
			logger.ErrorContext(c.Request.Context(), "http_request_error", attrs...)
			return
		}
		logger.WarnContext(c.Request.Context(), "http_request_warning", attrs...)
	}
}
