package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/apod-api/internal/httpserver"
	"github.com/jonesrussell/apod-api/internal/metrics"
)

// RouteOptions wires the route tree together.
type RouteOptions struct {
	Handler     *Handler
	Metrics     *metrics.Provider
	ServiceName string
	// CachePing verifies cache connectivity for the health endpoint.
	// Nil when caching is disabled.
	CachePing func() error
}

// SetupRoutes registers all routes on the router: the versioned API,
// health, and Prometheus metrics.
func SetupRoutes(router *gin.Engine, opts RouteOptions) {
	router.Use(opts.Metrics.Middleware())

	checks := map[string]httpserver.HealthChecker{}
	if opts.CachePing != nil {
		checks["redis"] = httpserver.RedisHealthChecker(opts.CachePing)
	}
	httpserver.RegisterHealthRoutes(router, opts.ServiceName, ServiceVersion, checks)

	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	// Trailing-slash requests are redirected here by the router.
	v1 := router.Group("/" + ServiceVersion)
	{
		v1.GET("/apod", opts.Handler.Apod)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{
			Code:           http.StatusNotFound,
			Msg:            "Not Found",
			ServiceVersion: ServiceVersion,
		})
	})
}
