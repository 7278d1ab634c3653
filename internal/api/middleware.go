package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/roach88/nodetree/internal/observability"
)

// RequestTimeout bounds the request context. Storage calls made with the
// request context fail with context.DeadlineExceeded once d has elapsed.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimit rejects requests beyond limiter's rate with 429.
func RateLimit(limiter *rate.Limiter, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			if metrics != nil {
				metrics.RateLimitedTotal.Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: msgTooManyRequests})
			return
		}
		c.Next()
	}
}

// RequestMetrics counts requests by route template and status.
func RequestMetrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// RequestLogger logs one line per request at debug level.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
