package router

import (
	"newsflow/backend/internal/api"
	"newsflow/backend/internal/web"
	"newsflow/backend/pkg/config"
	"newsflow/backend/pkg/di"
	"newsflow/backend/pkg/errors"
	"newsflow/backend/pkg/logger"
	"newsflow/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	Version     string
	rateLimiter *middleware.RateLimiter
}

// New creates a new router with the given container
func New(container *di.Container, version string) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Request ids first so every later middleware can tag its output
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(middleware.Metrics())

	if cfg.Features.Tracing {
		engine.Use(middleware.Tracing())
	}

	r := &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
		Version:   version,
	}

	if cfg.Features.RateLimiting {
		opts := middleware.DefaultRateLimiterOptions()
		if cfg.Security.RateLimit > 0 {
			opts.Limit = rateLimit(cfg.Security.RateLimit)
		}
		if cfg.Security.RateLimitBurst > 0 {
			opts.Burst = cfg.Security.RateLimitBurst
		}
		r.rateLimiter = middleware.NewRateLimiter(container.Logger, opts)
		engine.Use(r.rateLimiter.Middleware())
	}

	if cfg.Features.OpenAPIValidation {
		r.AddOpenAPIValidation()
	}

	return r
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() error {
	c := r.Container

	storyController := api.NewStoryController(c.StoryService)
	messageController := api.NewMessageController(c.MessageService, c.UploadService.MaxBytes())
	uploadController := api.NewUploadController(c.UploadService)
	healthController := api.NewHealthController(c.Health, r.Version)

	storyController.RegisterRoutes(r.Engine)
	messageController.RegisterRoutes(r.Engine)
	uploadController.RegisterRoutes(r.Engine, r.Config.Uploads.URLPrefix)
	healthController.RegisterRoutes(r.Engine)

	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	page := web.NewPage(c.StoryService, c.UploadService.MaxBytes())
	if err := page.RegisterRoutes(r.Engine); err != nil {
		return err
	}

	r.Logger.Info("Routes registered")
	return nil
}

// Close stops background work owned by the router
func (r *Router) Close() {
	if r.rateLimiter != nil {
		r.rateLimiter.Close()
	}
}
