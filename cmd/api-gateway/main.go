package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jorgejloo/educativo-api/api/swagger"
	"github.com/jorgejloo/educativo-api/internal/handler"
	"github.com/jorgejloo/educativo-api/internal/middleware"
	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/repository"
	"github.com/jorgejloo/educativo-api/internal/service"
	"github.com/jorgejloo/educativo-api/pkg/cache"
	"github.com/jorgejloo/educativo-api/pkg/config"
	"github.com/jorgejloo/educativo-api/pkg/database"
	"github.com/jorgejloo/educativo-api/pkg/logger"
	corsmiddleware "github.com/jorgejloo/educativo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/jorgejloo/educativo-api/pkg/middleware/requestid"
	"github.com/jorgejloo/educativo-api/pkg/receipt"
	"github.com/jorgejloo/educativo-api/pkg/storage"
)

// @title Educativo API
// @version 1.0.0
// @description Administration API for a tutoring business: students, courses, enrollments and the debt/payment ledger.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	debtRepo := repository.NewDebtRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	userRepo := repository.NewUserRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Receipt pipeline
	receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare receipt storage", "error", err)
	}
	receiptSigner := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	receiptRenderer := receipt.NewRenderer(cfg.Receipts.BusinessName)

	// Services
	metricsSvc := service.NewMetricsService()
	configSvc := service.NewConfigurationService(configRepo, logr)
	receiptSvc := service.NewReceiptService(receiptRenderer, receiptStore, receiptSigner, logr)
	receiptSvc.Start(context.Background())
	defer receiptSvc.Stop()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, configSvc, validate, logr)
	paymentSvc := service.NewPaymentService(debtRepo, paymentRepo, studentRepo, receiptSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(statsRepo, cacheRepo, paymentRepo, cfg.Dashboard.CacheTTL, logr)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, receiptSvc, dashboardSvc, metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	configHandler := handler.NewConfigurationHandler(configSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: login, outstanding-debt lookup, receipt downloads.
	api.POST("/auth/login", authHandler.Login)
	api.GET("/consulta", paymentHandler.Outstanding)
	api.GET("/receipts/:token", paymentHandler.DownloadReceipt)

	authenticated := api.Group("")
	authenticated.Use(middleware.JWT(authSvc))

	authenticated.GET("/auth/me", authHandler.Me)
	authenticated.PUT("/auth/password", authHandler.ChangePassword)

	authenticated.GET("/students", studentHandler.List)
	authenticated.GET("/students/:id", studentHandler.Get)
	authenticated.POST("/students", studentHandler.Create)
	authenticated.PUT("/students/:id", studentHandler.Update)
	authenticated.PATCH("/students/:id/active", middleware.RequireRoles(models.RoleAdmin), studentHandler.SetActive)

	authenticated.GET("/courses", courseHandler.List)
	authenticated.GET("/courses/:id", courseHandler.Get)
	authenticated.POST("/courses", middleware.RequireRoles(models.RoleAdmin), courseHandler.Create)
	authenticated.PUT("/courses/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)

	authenticated.GET("/enrollments", enrollmentHandler.List)
	authenticated.POST("/enrollments", enrollmentHandler.Enroll)

	authenticated.POST("/debts", middleware.RequireRoles(models.RoleAdmin), paymentHandler.CreateDebt)
	authenticated.GET("/debts/:id", paymentHandler.GetDebt)

	authenticated.GET("/payments", paymentHandler.List)
	authenticated.GET("/payments/:id", paymentHandler.Get)
	authenticated.POST("/payments", paymentHandler.Apply)

	authenticated.GET("/dashboard/summary", dashboardHandler.Summary)
	authenticated.GET("/dashboard/payments/export", dashboardHandler.ExportPayments)

	authenticated.GET("/configuration", middleware.RequireRoles(models.RoleAdmin), configHandler.List)
	authenticated.GET("/configuration/:key", middleware.RequireRoles(models.RoleAdmin), configHandler.Get)
	authenticated.PUT("/configuration/:key", middleware.RequireRoles(models.RoleAdmin), configHandler.Set)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
