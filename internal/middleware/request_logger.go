package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier-backend/internal/logger"
)

type RequestLogger struct {
	log *logger.Logger
}

func NewRequestLogger(log *logger.Logger) *RequestLogger {
	return &RequestLogger{log: log.With("middleware", "RequestLogger")}
}

// Handler emits one structured summary line per request.
func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			rl.log.Error("request completed", fields...)
		case status >= 400:
			rl.log.Warn("request completed", fields...)
		default:
			rl.log.Info("request completed", fields...)
		}
	}
}
