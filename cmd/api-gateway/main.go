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

	_ "github.com/noah-isme/smk-student-hub/api/swagger"
	"github.com/noah-isme/smk-student-hub/internal/handler"
	"github.com/noah-isme/smk-student-hub/internal/middleware"
	"github.com/noah-isme/smk-student-hub/internal/repository"
	"github.com/noah-isme/smk-student-hub/internal/service"
	"github.com/noah-isme/smk-student-hub/pkg/cache"
	"github.com/noah-isme/smk-student-hub/pkg/config"
	"github.com/noah-isme/smk-student-hub/pkg/database"
	"github.com/noah-isme/smk-student-hub/pkg/eventbus"
	"github.com/noah-isme/smk-student-hub/pkg/jobs"
	"github.com/noah-isme/smk-student-hub/pkg/logger"
	corsmiddleware "github.com/noah-isme/smk-student-hub/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/smk-student-hub/pkg/middleware/requestid"
	"github.com/noah-isme/smk-student-hub/pkg/remote"
	"github.com/noah-isme/smk-student-hub/pkg/storage"
)

// @title SMK Student Hub API
// @version 1.0
// @description Student records, discipline points, attendance, komite fees and role reports for a vocational school.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	bus := eventbus.New(logr)
	bus.SetObserver(metrics.ObserveDispatch)

	var (
		store      repository.StateStore
		reportRepo repository.ReportJobStore
	)
	switch cfg.State.Backend {
	case config.StateBackendMemory:
		logr.Warn("using in-memory state, data is lost on restart")
		store = repository.NewMemoryStateStore()
		reportRepo = repository.NewMemoryReportRepository()
	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Fatal("failed to prepare schema", zap.Error(err))
		}
		store = repository.NewPostgresStateStore(db)
		reportRepo = repository.NewReportRepository(db)
	}
	state := service.NewStateService(store, bus, metrics, logr)

	components := map[string]handler.Pinger{"state": state, "cache": nil, "remote": nil}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, view cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, "smkhub:")
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			components["cache"] = repo
		}
	}
	viewCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)
	defer viewCache.Attach(bus)()

	if cfg.NATS.URL != "" {
		relay, err := eventbus.NewNATSRelay(cfg.NATS.URL, cfg.NATS.Subject, bus, logr)
		if err != nil {
			logr.Warn("nats unavailable, change relay disabled", zap.Error(err))
		} else if err := relay.Start(); err != nil {
			logr.Warn("nats subscribe failed, change relay disabled", zap.Error(err))
			relay.Close()
		} else {
			defer relay.Close()
		}
	}

	var fetcher remote.Fetcher
	if cfg.Remote.Enabled {
		client := remote.NewFirestore(cfg.Remote, logr)
		defer client.Close() //nolint:errcheck
		fetcher = client
	}

	validate := validator.New()
	roster := service.NewRosterService(state, fetcher, cfg.Remote, cfg.School, logr)
	authSvc := service.NewAuthService(roster, state, validate, logr, service.AuthConfig{
		AccessTokenSecret:      cfg.JWT.Secret,
		AccessTokenExpiry:      cfg.JWT.Expiration,
		Issuer:                 cfg.JWT.Issuer,
		AdminName:              cfg.Accounts.AdminName,
		AdminPassword:          cfg.Accounts.AdminPassword,
		DefaultTeacherPassword: cfg.Accounts.DefaultTeacherPassword,
		EmailDomain:            cfg.School.EmailDomain,
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	renderer := service.NewReportRenderer(state, cfg.School.Name, logr)
	exporter := service.NewExportService(renderer, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)
	reports := service.NewReportService(reportRepo, nil, exporter, metrics, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	worker := service.NewReportWorker(reportRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		OnFailure:  reports.HandleFailure,
		Logger:     logr,
	})
	reports.SetQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()
	reports.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, components)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Students:    handler.NewStudentHandler(service.NewStudentService(state, validate, logr)),
		Classes:     handler.NewClassHandler(service.NewClassService(state, validate, logr)),
		Teachers:    handler.NewTeacherHandler(service.NewTeacherService(state, validate, logr)),
		Infractions: handler.NewInfractionHandler(service.NewInfractionService(state, viewCache, validate, logr)),
		Attendance:  handler.NewAttendanceHandler(service.NewAttendanceService(state, validate, logr)),
		Payments:    handler.NewPaymentHandler(service.NewPaymentService(state, viewCache, logr)),
		Logs:        handler.NewRoleLogHandler(service.NewRoleLogService(state, validate, logr)),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(state, viewCache, logr, service.DashboardServiceConfig{
			CacheTTL: cfg.Cache.TTL,
		})),
		Reports:     handler.NewReportHandler(reports, renderer),
		Backup:      handler.NewBackupHandler(service.NewBackupService(state, logr)),
		State:       handler.NewStateHandler(state),
		Preferences: handler.NewPreferenceHandler(service.NewPreferenceService(state)),
		Events:      handler.NewEventHandler(bus, 0, logr),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "state_backend", cfg.State.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
