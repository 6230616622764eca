package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classbridge/report-api/api/swagger"
	"github.com/classbridge/report-api/internal/handler"
	"github.com/classbridge/report-api/internal/middleware"
	"github.com/classbridge/report-api/internal/models"
	"github.com/classbridge/report-api/internal/ords"
	"github.com/classbridge/report-api/internal/repository"
	"github.com/classbridge/report-api/internal/service"
	"github.com/classbridge/report-api/pkg/cache"
	"github.com/classbridge/report-api/pkg/config"
	"github.com/classbridge/report-api/pkg/database"
	"github.com/classbridge/report-api/pkg/jobs"
	"github.com/classbridge/report-api/pkg/logger"
	corsmiddleware "github.com/classbridge/report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classbridge/report-api/pkg/middleware/requestid"
	"github.com/classbridge/report-api/pkg/storage"
)

// @title ClassBridge Report API
// @version 1.0.0
// @description Terminal report computation and review pipeline for multi-tenant schools.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	markRepo := repository.NewMarkRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	scaleRepo := repository.NewScaleRepository(db)
	lovRepo := repository.NewLovRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Attendance reads fall back to the local summary table unless the
	// legacy ORDS backend is configured.
	var attendanceSource interface {
		Summary(ctx context.Context, scope models.Scope) ([]models.AttendanceSummaryRow, error)
	} = attendanceRepo
	if cfg.ORDS.Enabled {
		attendanceSource = ords.NewClient(cfg.ORDS.BaseURL, cfg.ORDS.Timeout, logr)
		logr.Sugar().Infow("attendance source set to ORDS", "base_url", cfg.ORDS.BaseURL)
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	scaleSvc := service.NewScaleService(scaleRepo, cacheRepo, cfg.Scales.CacheTTL, nil, logr)
	scoreSvc := service.NewScoreService(markRepo, cfg.Reports.FetchConcurrency, logr)
	attendanceSvc := service.NewAttendanceService(attendanceSource, logr)
	scopeGuard := service.NewScopeGuard(logr)
	reportSvc := service.NewReportService(studentRepo, reviewRepo, scoreSvc, attendanceSvc, scaleSvc, scopeGuard, nil, logr)
	markSvc := service.NewMarkService(markRepo, studentRepo, scaleSvc, nil, logr)
	lovSvc := service.NewLovService(lovRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	reportHandler := handler.NewReportHandler(reportSvc, metricsSvc)
	markHandler := handler.NewMarkHandler(markSvc)
	scaleHandler := handler.NewScaleHandler(scaleSvc)
	lovHandler := handler.NewLovHandler(lovSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/reports/class", reportHandler.GetReport)
	authed.PUT("/reports/class/rows", reportHandler.SaveRow)
	authed.PUT("/reports/class/rows/all", reportHandler.SaveAll)

	authed.GET("/marks/sheet", markHandler.Sheet)
	authed.PUT("/marks", markHandler.Save)
	authed.DELETE("/marks/:id", markHandler.Delete)

	authed.GET("/scales", scaleHandler.List)
	headOnly := middleware.RequireRoles(models.RoleHeadTeacher, models.RoleAdmin)
	authed.PUT("/scales", headOnly, scaleHandler.Upsert)
	authed.DELETE("/scales/:id", headOnly, scaleHandler.Delete)

	authed.GET("/lov/classes", lovHandler.Classes)
	authed.GET("/lov/years", lovHandler.Years)
	authed.GET("/lov/terms", lovHandler.Terms)
	authed.GET("/lov/subjects", lovHandler.Subjects)

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(reportSvc, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)

		worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)

		exportJobSvc := service.NewExportJobService(exportJobRepo, exportQueue, exportSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		go exportJobSvc.StartCleanup(ctx)

		exportHandler := handler.NewExportHandler(exportJobSvc, metricsSvc)
		authed.POST("/reports/export", exportHandler.Generate)
		authed.GET("/reports/export/status/:id", exportHandler.Status)
		// Downloads authenticate via the signed token in the path.
		api.GET("/reports/export/:token", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	logr.Sugar().Infow("server stopped")
}
