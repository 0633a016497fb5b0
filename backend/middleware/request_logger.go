package middleware

import (
	"strconv"
	"time"

	"github.com/AnTengye/contractvigency/backend/pkg/logger"
	"github.com/AnTengye/contractvigency/backend/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request and records its latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// Route templates keep the metric's label set bounded.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), latency)

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "request completed", attrs...)
		case status >= 400:
			logger.Warn(ctx, "request completed", attrs...)
		default:
			logger.Info(ctx, "request completed", attrs...)
		}
	}
}
