package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/schooldesk/schooldesk-api/api/swagger"
	"github.com/schooldesk/schooldesk-api/internal/handler"
	"github.com/schooldesk/schooldesk-api/internal/middleware"
	"github.com/schooldesk/schooldesk-api/internal/models"
	"github.com/schooldesk/schooldesk-api/internal/repository"
	"github.com/schooldesk/schooldesk-api/internal/service"
	"github.com/schooldesk/schooldesk-api/pkg/cache"
	"github.com/schooldesk/schooldesk-api/pkg/config"
	"github.com/schooldesk/schooldesk-api/pkg/database"
	"github.com/schooldesk/schooldesk-api/pkg/export"
	"github.com/schooldesk/schooldesk-api/pkg/jobs"
	"github.com/schooldesk/schooldesk-api/pkg/logger"
	corsmiddleware "github.com/schooldesk/schooldesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schooldesk/schooldesk-api/pkg/middleware/requestid"
	"github.com/schooldesk/schooldesk-api/pkg/storage"
)

// @title SchoolDesk API
// @version 1.0.0
// @description School management backend: accounts, classes, schedules, planners, fees and finance
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	plannerRepo := repository.NewPlannerRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.AccessExpiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	guardianService := service.NewGuardianService(guardianRepo, userRepo, validate, logr, service.GuardianConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.AccessExpiration,
		RefreshTokenExpiry: cfg.JWT.GuardianRefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	plannerService := service.NewPlannerService(plannerRepo, userRepo, scheduleRepo, classRepo, metricsService, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	classService := service.NewClassService(classRepo, userRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, classRepo, userRepo, validate, logr)
	announcementService := service.NewAnnouncementService(announcementRepo, cacheRepo, cfg.Announcements.CacheTTL, validate, logr)
	financeService := service.NewFinanceService(financeRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, scheduleRepo, classRepo, validate, logr)
	performanceService := service.NewPerformanceService(performanceRepo, userRepo, validate, logr)
	dashboardService := service.NewDashboardService(dashboardRepo, cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr)

	receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare receipt storage", "error", err)
	}
	receiptSigner := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	receiptRenderer := export.NewReceiptRenderer(cfg.School.Name, cfg.School.Address)

	// The queue handler delegates through a pointer set after construction:
	// the fee service enqueues jobs and is also the worker that renders them.
	var feeService *service.FeeService
	receiptQueue := jobs.NewQueue("receipts", func(ctx context.Context, job jobs.Job) error {
		return feeService.RenderReceipt(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Receipts.WorkerConcurrency,
		MaxRetries: cfg.Receipts.WorkerRetries,
		Logger:     logr,
	})
	feeService = service.NewFeeService(feeRepo, financeRepo, receiptRenderer, receiptStore, receiptSigner, receiptQueue, metricsService, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	receiptQueue.Start(ctx)
	defer receiptQueue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authService, cfg.JWT)
	guardianHandler := handler.NewGuardianHandler(guardianService)
	plannerHandler := handler.NewPlannerHandler(plannerService)
	userHandler := handler.NewUserHandler(userService)
	classHandler := handler.NewClassHandler(classService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	announcementHandler := handler.NewAnnouncementHandler(announcementService)
	financeHandler := handler.NewFinanceHandler(financeService)
	feeHandler := handler.NewFeeHandler(feeService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	performanceHandler := handler.NewPerformanceHandler(performanceService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	authn := middleware.JWT(authService)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/change-password", authn, authHandler.ChangePassword)
			auth.GET("/me", authn, authHandler.Me)
		}

		guardian := api.Group("/guardian")
		{
			guardian.POST("/login", guardianHandler.Login)
			guardian.POST("/refresh", guardianHandler.Refresh)
			guardian.POST("/logout", guardianHandler.Logout)

			guardian.GET("/pending-planners", authn, middleware.GuardianOnly(), plannerHandler.PendingForGuardian)
			guardian.GET("/planner-details/:id", authn, middleware.GuardianOnly(), plannerHandler.DetailForGuardian)
			guardian.POST("/approve-planner/:id", authn, middleware.GuardianOnly(), plannerHandler.GuardianApprove)
			guardian.GET("/my-performance", authn, middleware.GuardianOnly(), performanceHandler.PerformanceForGuardian)
			guardian.GET("/my-results", authn, middleware.GuardianOnly(), performanceHandler.ResultsForGuardian)
		}

		student := api.Group("/student", authn, middleware.RequireRoles(models.RoleStudent))
		{
			student.GET("/daily-planner", plannerHandler.GetForDate)
			student.PUT("/daily-planner", plannerHandler.Save)
			student.POST("/daily-planner/:id/recall", plannerHandler.Recall)
			student.GET("/daily-planner/history", plannerHandler.History)
			student.GET("/my-schedule", scheduleHandler.ForStudent)
			student.GET("/my-fees", feeHandler.MyFees)
			student.GET("/my-attendance", attendanceHandler.MyHistory)
			student.GET("/my-performance", performanceHandler.MyPerformance)
			student.GET("/my-results", performanceHandler.MyResults)
		}

		teacher := api.Group("/teacher", authn, middleware.RequireRoles(models.RoleTeacher))
		{
			teacher.GET("/guardian-approved-planners", plannerHandler.ReviewQueue)
			teacher.GET("/planner-details/:id", plannerHandler.Detail)
			teacher.POST("/review-planner/:id", plannerHandler.Review)
			teacher.GET("/schedule", scheduleHandler.ForTeacher)
			teacher.POST("/performance", performanceHandler.Submit)
			teacher.GET("/performance-history", performanceHandler.History)
		}

		users := api.Group("/users", authn)
		{
			users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
			users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
			users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
			users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
			users.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), userHandler.SetStatus)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
			users.POST("/:id/guardian-code", middleware.RequireRoles(models.RoleAdmin), guardianHandler.IssueAccessCode)
		}

		classes := api.Group("/classes", authn)
		{
			classes.GET("", classHandler.List)
			classes.GET("/:id", classHandler.Get)
			classes.GET("/:id/students", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), classHandler.Students)
			classes.POST("", middleware.RequireRoles(models.RoleAdmin), classHandler.Create)
			classes.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), classHandler.Update)
			classes.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), classHandler.Delete)
		}

		subjects := api.Group("/subjects", authn)
		{
			subjects.GET("", subjectHandler.List)
			subjects.GET("/:id", subjectHandler.Get)
			subjects.POST("", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Create)
			subjects.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Update)
			subjects.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Delete)
		}

		schedules := api.Group("/schedules", authn)
		{
			schedules.GET("/class/:id", scheduleHandler.ForClass)
			schedules.PUT("/class/:id", middleware.RequireRoles(models.RoleAdmin), scheduleHandler.Replace)
		}

		announcements := api.Group("/announcements", authn)
		{
			announcements.GET("", announcementHandler.List)
			announcements.POST("", middleware.RequireRoles(models.RoleAdmin), announcementHandler.Create)
			announcements.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), announcementHandler.Update)
			announcements.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), announcementHandler.Delete)
		}

		finance := api.Group("/finance", authn, middleware.RequireRoles(models.RoleAdmin))
		{
			finance.GET("/transactions", financeHandler.List)
			finance.POST("/transactions", financeHandler.Create)
			finance.PUT("/transactions/:id", financeHandler.Update)
			finance.DELETE("/transactions/:id", financeHandler.Delete)
			finance.GET("/summary", financeHandler.Summary)
		}

		fees := api.Group("/fees")
		{
			// Receipt downloads carry their own signed token instead of a session.
			fees.GET("/receipt/:token", feeHandler.DownloadReceipt)

			fees.GET("", authn, middleware.RequireRoles(models.RoleAdmin), feeHandler.History)
			fees.GET("/student-lookup/:index", authn, middleware.RequireRoles(models.RoleAdmin), feeHandler.LookupStudent)
			fees.POST("/collect", authn, middleware.RequireRoles(models.RoleAdmin),
				middleware.Audit(userRepo, models.AuditActionFeeCollected, "fee_payment"), feeHandler.Collect)
			fees.GET("/:id/receipt-link", authn, middleware.RequireRoles(models.RoleAdmin), feeHandler.ReceiptLink)
		}

		attendance := api.Group("/attendance", authn, middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
		{
			attendance.GET("/today-class", attendanceHandler.TodayClass)
			attendance.GET("/sheet", attendanceHandler.Sheet)
			attendance.POST("", attendanceHandler.Submit)
			attendance.GET("/student/:id", attendanceHandler.StudentHistory)
		}

		api.POST("/results", authn, middleware.RequireRoles(models.RoleAdmin), performanceHandler.RecordResult)

		api.GET("/dashboard/stats", authn, middleware.RequireRoles(models.RoleAdmin), dashboardHandler.Stats)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
