package api

import (
	"net/http"
	"time"

	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/metrics"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/realtime"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router. hub may be nil, in which
// case the websocket route is not registered.
func NewRouter(services *service.Services, hub *realtime.Hub, m *metrics.Metrics, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Error().Err(err).Strs("trusted_proxies", cfg.Server.TrustedProxies).Msg("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigin))
	router.Use(metricsMiddleware(m))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	userHandler := NewUserHandler(services, log)
	funnelHandler := NewFunnelHandler(services, log)
	cardHandler := NewCardHandler(services, log)
	contactHandler := NewContactHandler(services, log)
	goalHandler := NewGoalHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/docs", docsHandler(cfg.Server.PublicURL))

	loginLimiter := newIPRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginBurst)
	public := v1.Group("/auth", rateLimitMiddleware(loginLimiter))
	{
		public.POST("/setup", authHandler.Setup)
		public.POST("/login", authHandler.Login)
	}

	secured := v1.Group("", authMiddleware(services.Auth, log))
	{
		secured.POST("/auth/logout", authHandler.Logout)
		secured.GET("/auth/me", authHandler.Me)
		secured.POST("/settings/api-key", requirePermission(models.PermSettingsUpdate), authHandler.GenerateAPIKey)

		users := secured.Group("/users", requireUserManager())
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.PATCH("/:id", userHandler.Update)
		}

		manageFunnels := requirePermission(models.PermFunnelsManage)
		funnels := secured.Group("/funnels")
		{
			funnels.GET("", funnelHandler.List)
			funnels.POST("", manageFunnels, funnelHandler.Create)
			funnels.GET("/:id", funnelHandler.Get)
			funnels.PUT("/:id", manageFunnels, funnelHandler.Update)
			funnels.DELETE("/:id", manageFunnels, funnelHandler.Delete)
			funnels.GET("/:id/board", funnelHandler.Board)
			funnels.POST("/:id/stages", manageFunnels, funnelHandler.AddStage)
			funnels.PUT("/:id/stages/order", manageFunnels, funnelHandler.ReorderStages)
		}
		stages := secured.Group("/stages", manageFunnels)
		{
			stages.PATCH("/:id", funnelHandler.RenameStage)
			stages.DELETE("/:id", funnelHandler.DeleteStage)
		}

		cards := secured.Group("/cards")
		{
			cards.POST("", cardHandler.Create)
			cards.GET("/:id", cardHandler.Get)
			cards.PATCH("/:id", cardHandler.Update)
			cards.DELETE("/:id", cardHandler.Delete)
			cards.POST("/:id/move", cardHandler.Move)
			cards.GET("/:id/history", cardHandler.History)
			cards.GET("/:id/tasks", cardHandler.ListTasks)
			cards.POST("/:id/tasks", cardHandler.CreateTask)
		}
		tasks := secured.Group("/tasks")
		{
			tasks.PATCH("/:id", cardHandler.UpdateTask)
			tasks.DELETE("/:id", cardHandler.DeleteTask)
		}
		secured.GET("/calendar", cardHandler.Calendar)

		contacts := secured.Group("/contacts")
		{
			contacts.GET("", contactHandler.List)
			contacts.POST("", contactHandler.Create)
			contacts.GET("/:id", contactHandler.Get)
			contacts.PUT("/:id", contactHandler.Update)
			contacts.DELETE("/:id", requirePermission(models.PermContactsDelete), contactHandler.Delete)
		}

		imports := secured.Group("/imports", requirePermission(models.PermContactsImport))
		{
			imports.POST("", importHandler.CreateImport)
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
		}
		secured.GET("/exports", exportHandler.StreamExport)

		goals := secured.Group("/goals")
		{
			goals.GET("", goalHandler.List)
			goals.PUT("", requirePermission(models.PermGoalsManage), goalHandler.Upsert)
			goals.DELETE("/:id", requirePermission(models.PermGoalsManage), goalHandler.Delete)
		}
		secured.GET("/dashboard", goalHandler.Dashboard)

		if hub != nil {
			secured.GET("/ws", func(c *gin.Context) {
				hub.ServeWS(c.Writer, c.Request)
			})
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "funnel-crm-api",
	})
}
