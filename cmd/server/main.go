// Package main runs the registration HTTP API with the admin feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lectureship/backend/config"
	"github.com/lectureship/backend/internal/analytics"
	"github.com/lectureship/backend/internal/auth"
	"github.com/lectureship/backend/internal/emaillogs"
	"github.com/lectureship/backend/internal/export"
	"github.com/lectureship/backend/internal/metrics"
	"github.com/lectureship/backend/internal/middleware"
	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/realtime"
	"github.com/lectureship/backend/internal/reconcile"
	"github.com/lectureship/backend/internal/registrations"
	"github.com/lectureship/backend/internal/snapshots"
	"github.com/lectureship/backend/pkg/database"
	"github.com/lectureship/backend/pkg/queue"
	"github.com/lectureship/backend/pkg/redis"
	"github.com/lectureship/backend/pkg/response"
	"github.com/lectureship/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Enabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			BackupsBucket:        cfg.AWS.BackupsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	m := metrics.New()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	if created, err := authRepo.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Error("bootstrap admin", zap.Error(err))
	} else if created {
		logger.Info("bootstrap admin created", zap.String("email", cfg.Admin.Email))
	}
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Admin feed
	relay := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(relay, logger)
	go hub.Run(ctx)

	// Registrations: Postgres first, then the Redis mirror, then S3 snapshots.
	registrationRepo := registrations.NewRepository(pool)
	mirror := snapshots.NewMirror(rdb.Client, logger)
	sources := []reconcile.Source{registrationRepo, mirror}
	if s3Client != nil {
		sources = append(sources, snapshots.NewArchive(s3Client, cfg.AWS.SnapshotKeep, logger))
	}
	reader := reconcile.NewReader(logger, m, sources...)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	registrationSvc := registrations.NewService(registrations.NewBuilder(), registrationRepo, reader, registrations.Deps{
		Mirror:  mirror,
		Jobs:    jobQueue,
		Events:  hub,
		Metrics: m,
	}, logger)
	registrationHandler := registrations.NewHandler(registrationSvc, logger)

	// Exports, stats, snapshots, email logs
	var uploads export.Uploader
	if s3Client != nil {
		uploads = s3Client
	}
	exportHandler := export.NewHandler(registrationSvc, uploads, cfg.Conference.Name, logger)
	statsHandler := analytics.NewHandler(registrationSvc, jobQueue, logger)
	snapshotHandler := snapshots.NewHandler(jobQueue, logger)
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, m))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Public registration form
	router.GET("/pricing", registrationHandler.Pricing)
	router.POST("/registrations", registrationHandler.Submit)
	router.POST("/registrations/quote", registrationHandler.Quote)

	router.POST("/auth/login", authHandler.Login)

	// WebSocket (token in query; browsers cannot set headers on upgrade)
	router.GET("/admin/ws", realtime.ServeWs(hub, func(token string) (string, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.Email, claims.Role, nil
	}, cfg.Server.CORSAllowedOrigins, logger))

	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/registrations", registrationHandler.List)
		admin.POST("/registrations", registrationHandler.Create)
		admin.DELETE("/registrations", registrationHandler.Clear)
		admin.GET("/registrations/backup", registrationHandler.Backup)
		admin.POST("/registrations/import", registrationHandler.Import)
		admin.GET("/registrations/:id", registrationHandler.Get)
		admin.PATCH("/registrations/:id/payment-status", registrationHandler.UpdatePaymentStatus)
		admin.DELETE("/registrations/:id", registrationHandler.Delete)
		admin.POST("/registrations/:id/resend", registrationHandler.ResendConfirmation)

		admin.GET("/stats", statsHandler.Stats)
		admin.GET("/emails", emailLogsHandler.List)
		admin.POST("/snapshots", snapshotHandler.Create)

		admin.GET("/exports/registrations.csv", exportHandler.CSV)
		admin.GET("/exports/summary.txt", exportHandler.Summary)
		admin.POST("/exports", exportHandler.Upload)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if os.Getenv("LOG_LEVEL") == "debug" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, _ := config.Build()
	return logger
}
