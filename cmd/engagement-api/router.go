package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/apierror"
	"github.com/JonnyWalker81/trendy/engagement/internal/config"
	"github.com/JonnyWalker81/trendy/engagement/internal/handlers"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
	"github.com/JonnyWalker81/trendy/engagement/internal/metrics"
	"github.com/JonnyWalker81/trendy/engagement/internal/middleware"
	"github.com/JonnyWalker81/trendy/engagement/internal/service"
)

// newRouter builds the HTTP API. limiter may be nil to disable rate limiting.
func newRouter(cfg *config.Config, svc service.EngagementService, m *metrics.Metrics, limiter *middleware.RateLimiter, log logger.Logger) (*gin.Engine, error) {
	defaultLoc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}
	engagementHandler := handlers.NewEngagementHandler(svc, defaultLoc, cfg.Server.MaxBatchSize)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Metrics(m))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"env":    cfg.Server.Env,
			"time":   time.Now().UTC(),
		})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Stateless computation needs no user
		v1.POST("/compute", engagementHandler.Compute)

		protected := v1.Group("")
		protected.Use(middleware.RequireUser())
		{
			ingest := []gin.HandlerFunc{engagementHandler.IngestEvents}
			if limiter != nil {
				ingest = append([]gin.HandlerFunc{middleware.RateLimit(limiter)}, ingest...)
			}
			protected.POST("/events", ingest...)

			protected.GET("/metrics", engagementHandler.GetMetrics)
			protected.GET("/metrics/streaks", engagementHandler.GetStreaks)
			protected.GET("/metrics/correlations", engagementHandler.GetCorrelations)
			protected.GET("/metrics/trend", engagementHandler.GetTrend)

			protected.GET("/achievements", engagementHandler.GetAchievements)
			protected.POST("/achievements/reconcile", engagementHandler.ReconcileAchievements)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		apierror.WriteProblem(c, apierror.NewNotFoundError(apierror.GetRequestID(c), "route", c.Request.URL.Path))
	})

	return router, nil
}
