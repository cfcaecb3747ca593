package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RouterConfig holds the settings of the HTTP router
type RouterConfig struct {
	JWTSecret        string
	RateLimitPerHour int
}

// SetupRoutes sets up the API routes
func SetupRoutes(log logrus.FieldLogger, handler *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(log))

	// Health check and metrics
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := NewRateLimiter(log, cfg.RateLimitPerHour)

	githubAccess := router.Group("/api/github-access")
	githubAccess.Use(Auth(cfg.JWTSecret))
	{
		githubAccess.POST("/access", limiter.Handler(), handler.GrantAccess)
		githubAccess.GET("/access", handler.ListRequests)
		githubAccess.GET("/access/:id", handler.GetRequest)
	}

	return router
}
