package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/cyber-patrol/pkg/common"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns an operator API panic into a 500 and reports it to Sentry when a hub is attached.
// A panic after the response started (an upgraded alert stream) only aborts the chain.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			route := c.FullPath()
			logger.WithContext(c.Request.Context()).Error("Operator request panicked",
				zap.Any("panic", rec),
				zap.String("route", route),
				zap.String("method", c.Request.Method),
				zap.Stack("stack"),
			)

			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetLevel(sentry.LevelFatal)
					scope.SetTag("correlation_id", GetCorrelationID(c))
					scope.SetTag("route", route)
					if platform := c.Param("platform"); platform != "" {
						scope.SetTag("platform", platform)
					}
					hub.CaptureException(fmt.Errorf("operator api panic: %v", rec))
				})
			}

			if c.Writer.Written() {
				c.Abort()
				return
			}
			common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
			c.Abort()
		}()

		c.Next()
	}
}
