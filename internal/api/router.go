package api

import (
	"time"

	"custom-url-shortener/internal/auth"
	"custom-url-shortener/internal/logger"
	"custom-url-shortener/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and configures the Gin router.
func SetupRouter(h *Handler, tokens *auth.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	r.Use(cors.New(config))

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.Use(auth.OptionalOwner(tokens), RequestLogger())
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/links", h.Shorten)

		custom := api.Group("/custom-links", auth.RequireOwner(tokens))
		custom.POST("/add", h.AddCustomLink)
		custom.GET("/get-all", h.ListCustomLinks)
		custom.GET("/count-links", h.CountLinks)
		custom.GET("/click-count", h.ClickCount)
		custom.GET("/average-clicks", h.AverageClicks)
		custom.GET("/last-creation", h.LastCreation)
		custom.GET("/:code", h.VisitCustomLink)
	}

	r.GET("/:code", RequestLogger(), h.Redirect)

	return r
}

// RequestLogger logs every request with its latency and, when known, the owner.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 400 {
			event = logger.Warn()
		}
		if status >= 500 {
			event = logger.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user_id", auth.OwnerID(c)).
			Msg("request")
	}
}
