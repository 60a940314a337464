package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/careerdesk/careerdesk-backend/internal/http/handlers"
	"github.com/careerdesk/careerdesk-backend/internal/http/middleware"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	OwnerAuth *middleware.OwnerAuthMiddleware

	AdminHandler  *handlers.AdminHandler
	HealthHandler *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("careerdesk-admin"))
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		protected := api.Group("/")
		if cfg.OwnerAuth != nil {
			protected.Use(cfg.OwnerAuth.RequireOwner())
		}
		if cfg.AdminHandler != nil {
			protected.POST("/admin", cfg.AdminHandler.Handle)
		}
	}

	return r
}
