package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, sessions *auth.Manager, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	pengajuanHandler := NewPengajuanHandler(services, cfg, log)
	authHandler := NewAuthHandler(sessions, log)
	reviewHandler := NewReviewHandler(services, log)
	exportHandler := NewExportHandler(services, cfg, log)
	importHandler := NewImportHandler(services, cfg, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	// PIN and password checks share one per-IP budget
	attempts := rateLimitMiddleware(cfg.Server.AttemptsPerMinute, time.Minute)

	// Public form
	pengajuan := router.Group("/api/pengajuan")
	{
		pengajuan.POST("", pengajuanHandler.Create)
		pengajuan.POST("/credentials", pengajuanHandler.GenerateCredentials)
		pengajuan.POST("/validate", pengajuanHandler.ValidateStep)
		pengajuan.POST("/lookup", attempts, pengajuanHandler.Lookup)
		pengajuan.PUT("/:id", attempts, pengajuanHandler.Update)
	}

	// API v1
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", attempts, authHandler.Login)

		admin := v1.Group("", sessionMiddleware(sessions))
		admin.GET("/auth/session", authHandler.Session)

		submissions := admin.Group("/submissions")
		{
			submissions.GET("", reviewHandler.List)
			submissions.GET("/:id", reviewHandler.Detail)
			submissions.POST("/:id/confirm", reviewHandler.Confirm)
			submissions.POST("/:id/items/:item_id/review", reviewHandler.ReviewItem)
			submissions.POST("/:id/items/:item_id/publication", reviewHandler.ValidatePublication)
			submissions.POST("/:id/output-validation", reviewHandler.ValidateOutput)
		}

		// Export endpoints
		admin.GET("/exports", exportHandler.Export)

		// Import endpoints
		imports := admin.Group("/imports")
		{
			imports.POST("", importHandler.CreateImport)
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "pengajuan-konten-api",
	})
}

// metricsHandler returns store metrics
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		count, err := services.Export.GetCount(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"store": gin.H{
				"submissions": count,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if sess := sessionFrom(c); sess != nil {
			event = event.Str("admin", sess.Username)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Pin")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
