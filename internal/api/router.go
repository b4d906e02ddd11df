// Package api wires the HTTP routes onto a gin engine.
package api

import (
	"github.com/Ayash-Bera/agentsearch/internal/api/handlers"
	"github.com/Ayash-Bera/agentsearch/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Search      *handlers.SearchHandler
	System      *handlers.SystemHandler
	RateLimiter *middleware.RateLimiter
	Logger      *logrus.Logger
}

// NewRouter builds the engine. The rate limiter applies to search routes
// only and is skipped when nil.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(cfg.Logger),
		middleware.SecurityHeaders(),
	)

	r.GET("/health", cfg.System.HandleHealth)

	v1 := r.Group("/api/v1")

	search := v1.Group("/search")
	if cfg.RateLimiter != nil {
		search.Use(cfg.RateLimiter.RateLimit())
	}
	search.POST("", cfg.Search.HandleSearch)
	search.POST("/async", cfg.Search.HandleAsyncSearch)
	search.GET("/task/:id", cfg.Search.HandleTaskStatus)
	search.GET("/history", cfg.Search.HandleHistory)

	v1.GET("/agents/status", cfg.System.HandleAgentsStatus)
	v1.GET("/agents/:name", cfg.System.HandleAgentDetail)
	v1.GET("/metrics", cfg.System.HandleMetrics)
	v1.DELETE("/cache/clear", cfg.System.HandleCacheClear)
	v1.GET("/cache/stats", cfg.System.HandleCacheStats)

	return r
}
