// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/handlers"
	"github.com/javajoker/licensing-portal/internal/metrics"
	"github.com/javajoker/licensing-portal/internal/middleware"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/services"
	"github.com/javajoker/licensing-portal/internal/store"
	"github.com/javajoker/licensing-portal/internal/utils"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

const version = "1.0.0"

// Initialize wires services on top of st and returns the HTTP engine with a
// func that releases its background workers. Workflow metrics are
// registered on reg and served from it.
func Initialize(st store.Store, cfg *config.Config, reg *prometheus.Registry) (*gin.Engine, func(), error) {
	// Initialize services
	table := workflow.DefaultTable()
	workflowMetrics := metrics.New(reg)
	notificationService := services.NewNotificationService(cfg)
	attachmentService, err := services.NewAttachmentService(cfg)
	if err != nil {
		return nil, nil, err
	}

	applicationService := services.NewApplicationService(st, table, notificationService, workflowMetrics, cfg.Workflow)
	timelineService := services.NewTimelineService(st, table, workflowMetrics)

	// Initialize handlers
	applicationHandler := handlers.NewApplicationHandler(applicationService, timelineService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
	workflowHandler := handlers.NewWorkflowHandler(table)

	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Issuer)
	generalLimiter := middleware.NewGeneralRateLimiter()
	writeLimiter := middleware.NewWriteRateLimiter()
	stop := func() {
		generalLimiter.Stop()
		writeLimiter.Stop()
	}

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.Frontend.AllowedOrigins)))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(generalLimiter.Middleware())
	v1.Use(middleware.AuthRequired(jwtManager))
	{
		applications := v1.Group("/applications")
		{
			applications.GET("", applicationHandler.ListApplications)
			applications.POST("", writeLimiter.Middleware(), middleware.RoleRequired(models.RoleDealer), applicationHandler.SubmitApplication)
			applications.GET("/:uid/timeline", applicationHandler.GetTimeline)
			applications.GET("/:uid/actions", applicationHandler.GetAvailableActions)
			applications.POST("/:uid/transitions", writeLimiter.Middleware(), applicationHandler.ApplyTransition)
		}

		v1.GET("/workflow/transitions", workflowHandler.GetTransitions)

		v1.POST("/attachments/presign", writeLimiter.Middleware(), middleware.RoleRequired(models.RoleDealer), attachmentHandler.PresignUpload)
	}

	return r, stop, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"X-Total-Count", "X-Page", "X-Per-Page", "X-Total-Pages", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowOrigins = nil
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	return c
}
