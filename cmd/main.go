package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/clients/redis"
	"github.com/careerdesk/careerdesk-backend/internal/config"
	"github.com/careerdesk/careerdesk-backend/internal/data/db"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos"
	"github.com/careerdesk/careerdesk-backend/internal/http/handlers"
	"github.com/careerdesk/careerdesk-backend/internal/http/middleware"
	"github.com/careerdesk/careerdesk-backend/internal/identity"
	"github.com/careerdesk/careerdesk-backend/internal/observability"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
	"github.com/careerdesk/careerdesk-backend/internal/server"
	"github.com/careerdesk/careerdesk-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg := config.Load()
	if len(cfg.OwnerEmails) == 0 {
		log.Warn("ADMIN_OWNER_EMAILS is empty; every admin request will be rejected")
	}

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "careerdesk-admin",
		Environment: logMode,
	})
	if shutdownOtel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	profileRepo := repos.NewProfileRepo(thePG, log)
	roleRepo := repos.NewRoleRepo(thePG, log)
	accessRepo := repos.NewAccessRepo(thePG, log)
	usageRepo := repos.NewUsageRepo(thePG, log)
	eventRepo := repos.NewEventRepo(thePG, log)
	auditRepo := repos.NewAuditRepo(thePG, log)

	// Identity provider
	directory, err := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityKey, log)
	if err != nil {
		log.Error("Identity client init failed", "error", err)
		os.Exit(1)
	}

	// Redis audit bus (optional)
	var auditBus redis.AuditBus
	if cfg.RedisAddr != "" {
		auditBus, err = redis.NewAuditBus(cfg.RedisAddr, cfg.RedisAuditChannel, log)
		if err != nil {
			log.Warn("Redis audit bus unavailable; audit entries stay local", "error", err)
			auditBus = nil
		} else {
			defer auditBus.Close()
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	estimator := services.NewCostEstimator(cfg)
	trafficService := services.NewTrafficService(log, eventRepo, cfg.EventSampleLimit)
	insightsService := services.NewInsightsService(log, cfg, profileRepo, roleRepo, accessRepo, usageRepo, directory, estimator)
	summaryService := services.NewSummaryService(log, insightsService, trafficService, estimator)
	guardService := services.NewGuardService(thePG, log, cfg, profileRepo, roleRepo, accessRepo, directory)
	auditService := services.NewAuditService(log, auditRepo, auditBus)

	// Handlers
	log.Info("Setting up handlers from main...")
	adminHandler := handlers.NewAdminHandler(log, summaryService, guardService, auditService)
	healthHandler := handlers.NewHealthHandler()

	// Middleware
	ownerAuth := middleware.NewOwnerAuthMiddleware(log, cfg)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:           log,
		OwnerAuth:     ownerAuth,
		AdminHandler:  adminHandler,
		HealthHandler: healthHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
