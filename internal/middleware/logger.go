package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
)

// RequestIDHeader carries the correlation id in both directions
const RequestIDHeader = logger.RequestIDHeader

// Logger assigns a request id, stores a request-scoped logger in the
// request context and logs every completed request
func Logger(base logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := logger.WithRequestID(c.Request.Context(), c.GetHeader(RequestIDHeader))
		requestID := logger.RequestIDFromContext(ctx)
		ctx = logger.WithLogger(ctx, base)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		log := logger.Ctx(c.Request.Context())
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
