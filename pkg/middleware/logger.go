package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// quietPaths are polled by orchestrators and scrapers; they log at debug
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RequestLogger logs one line per operator request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		reqLogger := logger.WithContext(c.Request.Context())

		switch {
		case len(c.Errors) > 0:
			reqLogger.Error("Request completed with errors", append(fields, zap.String("errors", c.Errors.String()))...)
		case c.Writer.Status() >= 500:
			reqLogger.Error("Request failed", fields...)
		default:
			if _, quiet := quietPaths[path]; quiet {
				reqLogger.Debug("Request completed", fields...)
				return
			}
			reqLogger.Info("Request completed", fields...)
		}
	}
}
