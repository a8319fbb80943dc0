package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Unmatched routes share one label so scanners hitting random paths cannot blow up cardinality.
const unmatchedRoute = "unmatched"

var (
	operatorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrol_http_requests_total",
			Help: "Operator API requests by route and status class",
		},
		[]string{"service", "method", "route", "status_class"},
	)

	operatorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patrol_http_request_duration_seconds",
			Help:    "Operator API request latency by route",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "route"},
	)

	operatorRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "patrol_http_requests_in_flight",
			Help: "Operator API requests currently being served, including open alert streams",
		},
		[]string{"service"},
	)
)

// Metrics records operator API traffic by route template
func Metrics(serviceName string) gin.HandlerFunc {
	inFlight := operatorRequestsInFlight.WithLabelValues(serviceName)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		inFlight.Inc()
		start := time.Now()
		defer func() {
			inFlight.Dec()
			operatorRequestsTotal.WithLabelValues(serviceName, c.Request.Method, route, statusClass(c.Writer.Status())).Inc()
			operatorRequestDuration.WithLabelValues(serviceName, c.Request.Method, route).Observe(time.Since(start).Seconds())
		}()

		c.Next()
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
