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
	"go.uber.org/zap"

	_ "github.com/campuspulse/events-api/api/swagger"
	"github.com/campuspulse/events-api/internal/handler"
	"github.com/campuspulse/events-api/internal/middleware"
	"github.com/campuspulse/events-api/internal/models"
	"github.com/campuspulse/events-api/internal/repository"
	"github.com/campuspulse/events-api/internal/service"
	"github.com/campuspulse/events-api/pkg/cache"
	"github.com/campuspulse/events-api/pkg/config"
	"github.com/campuspulse/events-api/pkg/database"
	"github.com/campuspulse/events-api/pkg/jobs"
	"github.com/campuspulse/events-api/pkg/logger"
	corsmiddleware "github.com/campuspulse/events-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuspulse/events-api/pkg/middleware/requestid"
)

// @title Campus Pulse Events API
// @version 1.0.0
// @description Capacity-aware event registration, waitlist, and reconciliation backend
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsService := service.NewMetricsService()

	// Repositories.
	eventRepo := repository.NewEventRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	organizationRepo := repository.NewOrganizationRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Slots cache; the API works without Redis, just slower.
	var cacheService *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, slots cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.SlotsTTL, logr, true)
		}
	}

	windows := models.WaitlistWindows{
		OpenAfter:    cfg.Waitlist.OpenAfter,
		ClosingAfter: cfg.Waitlist.ClosingAfter,
		CloseAfter:   cfg.Waitlist.CloseAfter,
	}

	// Services.
	authService := service.NewAuthService(cfg.JWT.Secret)
	attendanceService := service.NewAttendanceService(attendanceRepo, eventRepo, eventRepo, notificationRepo, cacheService, validate, logr)
	waitlistService := service.NewWaitlistService(waitlistRepo, attendanceRepo, eventRepo, eventRepo, notificationRepo, cacheService, validate, logr)
	notificationService := service.NewNotificationService(notificationRepo, logr)
	reconciliationService := service.NewReconciliationService(eventRepo, organizationRepo, userRepo, attendanceRepo, waitlistRepo, notificationRepo, metricsService, windows, cfg.Sweep.Workers, logr)

	sweepQueue := jobs.NewQueue("sweep", reconciliationService.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Sweep.Workers,
		MaxRetries: cfg.Sweep.MaxRetries,
		Logger:     logr,
	})
	sweepQueue.Start(ctx)
	defer sweepQueue.Stop()
	reconciliationService.SetRetryQueue(sweepQueue)

	if cfg.Sweep.Enabled {
		go runSweepLoop(ctx, reconciliationService, cfg.Sweep.Interval, logr)
	}

	// Handlers.
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	waitlistHandler := handler.NewWaitlistHandler(waitlistService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	attendance := api.Group("/attendance")
	{
		attendance.POST("", attendanceHandler.Register)
		attendance.GET("/check-registration", attendanceHandler.CheckRegistration)
		attendance.GET("/slots/remaining", attendanceHandler.RemainingSlots)
		attendance.GET("/count/:eventId", attendanceHandler.Counts)
		attendance.GET("/unattended", attendanceHandler.Unattended)
	}

	attendanceAdmin := api.Group("/attendance")
	attendanceAdmin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleOfficer))
	{
		attendanceAdmin.PUT("/attend", attendanceHandler.MarkAttended)
		attendanceAdmin.PUT("/events/:eventId/records", attendanceHandler.BulkApprove)
		attendanceAdmin.PUT("/mark-registered/:id", attendanceHandler.MarkRegistered)
		attendanceAdmin.PUT("/mark-unregistered/:id", attendanceHandler.MarkUnregistered)
		attendanceAdmin.DELETE("/:id", attendanceHandler.Delete)
	}

	waitlist := api.Group("/waitlist")
	{
		waitlist.POST("", waitlistHandler.Join)
		waitlist.GET("/position/:eventId/:userId", waitlistHandler.Position)
		waitlist.POST("/confirm", waitlistHandler.Confirm)
		waitlist.DELETE("/expire/:userId/:eventId", waitlistHandler.Expire)
		waitlist.GET("/check", waitlistHandler.Check)
		waitlist.GET("/first/:eventId", waitlistHandler.First)
		waitlist.GET("/all/:eventId", waitlistHandler.ListByEvent)
	}

	notifications := api.Group("/notifications")
	notifications.Use(middleware.JWT(authService))
	{
		notifications.GET("/:userId", middleware.RBAC("SELF", string(models.RoleAdmin), string(models.RoleOfficer)), notificationHandler.ListByUser)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
	}

	reconciliation := api.Group("/reconciliation")
	reconciliation.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleOfficer))
	{
		reconciliation.POST("/sweep", reconciliationHandler.RunSweep)
		reconciliation.POST("/sweep/:eventId", reconciliationHandler.SweepEvent)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// runSweepLoop triggers the reconciliation sweep on a fixed interval until
// the context is cancelled.
func runSweepLoop(ctx context.Context, svc *service.ReconciliationService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.RunSweep(ctx); err != nil {
				logr.Sugar().Errorw("scheduled sweep failed", "error", err)
			}
		}
	}
}
