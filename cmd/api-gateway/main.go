package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly recurring course scheduling with teacher and classroom conflict detection
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Timetable.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		} else if client != nil {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	slotRepo := repository.NewWeeklySlotRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, true)
		invalidations := jobs.NewQueue("timetable-invalidation", cacheSvc.HandleInvalidationJob, jobs.QueueConfig{
			Workers:    1,
			BufferSize: 64,
			MaxRetries: 5,
			RetryDelay: 500 * time.Millisecond,
			Logger:     logr,
		})
		invalidations.Start(ctx)
		defer invalidations.Stop()
		cacheSvc.SetRetryQueue(invalidations)
	}
	timetableSvc := service.NewTimetableService(slotRepo, courseRepo, cacheSvc, cfg.Timetable.CacheTTL, logr)

	hours := service.OperatingHours{Opening: cfg.Scheduler.OpeningTime, Closing: cfg.Scheduler.ClosingTime}
	slotSvc := service.NewWeeklySlotService(db, slotRepo, courseRepo, timetableSvc, metrics, validate, logr, service.WeeklySlotServiceConfig{
		Hours:       hours,
		LockTimeout: cfg.Scheduler.LockTimeout,
	})
	availabilitySvc := service.NewAvailabilityService(slotRepo, courseRepo, metrics, validate, logr, hours)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	health := handler.NewMetricsHandler(metrics, func(ctx context.Context) (int64, error) {
		if err := db.PingContext(ctx); err != nil {
			return 0, err
		}
		return database.SchemaVersion(ctx, db.DB)
	})
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		verifier:   service.NewTokenVerifier(cfg.JWT.Secret),
		limiter:    middleware.NewSchoolRateLimiter(cfg.Scheduler.MutationRPS, cfg.Scheduler.MutationBurst),
		slots:      handler.NewWeeklySlotHandler(slotSvc, availabilitySvc),
		timetables: handler.NewTimetableHandler(timetableSvc, export.NewCSVExporter()),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
