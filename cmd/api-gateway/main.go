package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sims-core-api/api/swagger"
	"github.com/noah-isme/sims-core-api/internal/handler"
	"github.com/noah-isme/sims-core-api/internal/middleware"
	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/repository"
	"github.com/noah-isme/sims-core-api/internal/service"
	"github.com/noah-isme/sims-core-api/pkg/cache"
	"github.com/noah-isme/sims-core-api/pkg/config"
	"github.com/noah-isme/sims-core-api/pkg/database"
	"github.com/noah-isme/sims-core-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sims-core-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sims-core-api/pkg/middleware/requestid"
)

// @title SIMS Core API
// @version 0.1.0
// @description Result lifecycle and enrollment capacity engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repositories.
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	resultRepo := repository.NewResultRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	tokenSvc := service.NewTokenService(cfg.JWT.Secret)
	sectionSvc := service.NewSectionService(sectionRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, auditRepo, cfg.Enrollment.CapacityRetries, nil, logr)
	eligibilitySvc := service.NewEligibilityService(attendanceRepo, cfg.Eligibility.Threshold, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, nil, logr)
	resultSvc := service.NewResultService(resultRepo, auditRepo, nil, logr)
	changeRequestSvc := service.NewChangeRequestService(changeRequestRepo, resultRepo, auditRepo, nil, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Enrollments:    enrollmentRepo,
		Results:        resultRepo,
		ChangeRequests: changeRequestRepo,
		Eligibility:    eligibilitySvc,
		Cache:          cacheSvc,
		Logger:         logr,
		CacheTTL:       cfg.Dashboard.CacheTTL,
	})

	// Handlers.
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, eligibilitySvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		readyCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(readyCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	staff := []models.UserRole{models.RoleAdmin, models.RoleRegistrar}
	teaching := []models.UserRole{models.RoleAdmin, models.RoleRegistrar, models.RoleFaculty}

	api.POST("/terms", middleware.RequireRoles(staff...), sectionHandler.CreateTerm)
	api.GET("/terms/:name", sectionHandler.GetTerm)
	api.POST("/sections", middleware.RequireRoles(staff...), sectionHandler.Create)
	api.GET("/sections/:id", sectionHandler.Get)
	api.GET("/sections/:id/roster", middleware.RequireRoles(teaching...), enrollmentHandler.Roster)

	api.POST("/enrollments", middleware.RequireRoles(staff...), enrollmentHandler.Create)
	api.POST("/enrollments/:id/withdraw", middleware.RequireRoles(staff...), enrollmentHandler.Withdraw)

	api.POST("/attendance", middleware.RequireRoles(teaching...), attendanceHandler.Record)
	api.GET("/eligibility", attendanceHandler.Eligibility)

	api.POST("/results", middleware.RequireRoles(teaching...), resultHandler.Create)
	api.GET("/results/:id", resultHandler.Get)
	api.PATCH("/results/:id", middleware.RequireRoles(teaching...), resultHandler.Update)
	api.POST("/results/:id/publish", middleware.RequireRoles(teaching...), resultHandler.Publish)

	api.POST("/change-requests", middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin, models.RoleRegistrar), changeRequestHandler.Create)
	api.GET("/change-requests", middleware.RequireRoles(teaching...), changeRequestHandler.List)
	api.GET("/change-requests/:id", middleware.RequireRoles(teaching...), changeRequestHandler.Get)
	api.POST("/change-requests/:id/resolve", middleware.RequireRoles(staff...), changeRequestHandler.Resolve)

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard/stats", dashboardHandler.Stats)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
