package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Overall health states
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	Checks     map[string]string `json:"checks,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthCheckWithDeps reports hard dependency checks and soft component status.
// A failed check answers 503. A component reporting "degraded" marks the service
// degraded but still answers 200; optional components may be "not_available".
func HealthCheckWithDeps(serviceName, version string, checks map[string]func() error, components map[string]func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := HealthHealthy
		checkResults := make(map[string]string, len(checks))
		for name, checkFunc := range checks {
			if err := checkFunc(); err != nil {
				checkResults[name] = "unhealthy: " + err.Error()
				status = HealthUnhealthy
			} else {
				checkResults[name] = HealthHealthy
			}
		}

		componentResults := make(map[string]string, len(components))
		for name, statusFunc := range components {
			s := statusFunc()
			componentResults[name] = s
			if s == HealthDegraded && status == HealthHealthy {
				status = HealthDegraded
			}
		}

		statusCode := http.StatusOK
		if status == HealthUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, HealthResponse{
			Status:     status,
			Service:    serviceName,
			Version:    version,
			Checks:     checkResults,
			Components: componentResults,
		})
	}
}
