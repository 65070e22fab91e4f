// Package main runs the background job worker (emails, spreadsheet rows, S3 snapshots).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lectureship/backend/config"
	"github.com/lectureship/backend/internal/emaillogs"
	"github.com/lectureship/backend/internal/metrics"
	"github.com/lectureship/backend/internal/notify"
	"github.com/lectureship/backend/internal/reconcile"
	"github.com/lectureship/backend/internal/registrations"
	"github.com/lectureship/backend/internal/sheets"
	"github.com/lectureship/backend/internal/snapshots"
	"github.com/lectureship/backend/internal/worker"
	"github.com/lectureship/backend/pkg/database"
	"github.com/lectureship/backend/pkg/queue"
	"github.com/lectureship/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	m := metrics.New()
	jobQueue := queue.NewQueue(rdb.Client, logger)

	renderer, err := notify.NewRenderer(notify.Conference{
		Name:           cfg.Conference.Name,
		OrganizerEmail: cfg.Conference.OrganizerEmail,
		ContactPhone:   cfg.Conference.ContactPhone,
	})
	if err != nil {
		logger.Fatal("email templates", zap.Error(err))
	}
	sender := notify.NewSender(renderer, newMailer(cfg.Email, logger), emaillogs.NewRepository(pool), m, logger)

	deps := worker.Deps{Emails: sender, Metrics: m}

	if cfg.Sheets.Enabled() {
		appender, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Range:           cfg.Sheets.Range,
			CredentialsFile: cfg.Sheets.CredentialsFile,
		}, logger)
		if err != nil {
			logger.Warn("sheets disabled", zap.Error(err))
		} else {
			if err := appender.EnsureHeader(ctx); err != nil {
				logger.Warn("sheet header", zap.Error(err))
			}
			deps.Sheets = appender
		}
	}

	registrationRepo := registrations.NewRepository(pool)
	sources := []reconcile.Source{registrationRepo, snapshots.NewMirror(rdb.Client, logger)}
	if cfg.AWS.Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			BackupsBucket:        cfg.AWS.BackupsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, snapshots skipped", zap.Error(err))
		} else {
			archive := snapshots.NewArchive(s3Client, cfg.AWS.SnapshotKeep, logger)
			sources = append(sources, archive)
			deps.Snapshots = archive
		}
	}
	// Snapshots capture the same reconciled view the admin page shows.
	deps.Lister = registrations.NewService(nil, registrationRepo, reconcile.NewReader(logger, m, sources...), registrations.Deps{}, logger)

	processor := worker.NewProcessor(jobQueue, deps, logger)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Run(ctx)
		}()
	}
	if deps.Snapshots != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.ScheduleSnapshots(ctx, jobQueue, 24*time.Hour, logger)
		}()
	}

	metricsSrv := &http.Server{Addr: ":" + getEnv("WORKER_METRICS_PORT", "9091"), Handler: m.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.Error(err))
		}
	}()
	logger.Info("worker started", zap.Int("concurrency", cfg.Worker.Concurrency), zap.Bool("sheets", deps.Sheets != nil),
		zap.Bool("snapshots", deps.Snapshots != nil), zap.String("email_provider", cfg.Email.Provider))

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	wg.Wait()
	logger.Info("worker stopped")
}

func newMailer(cfg config.EmailConfig, logger *zap.Logger) notify.Mailer {
	switch cfg.Provider {
	case config.EmailProviderResend:
		return notify.NewResendMailer(cfg.ResendAPIKey, cfg.From(), cfg.ResendBaseURL)
	case config.EmailProviderSMTP:
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.FromAddress,
		})
	}
	return notify.NewLogMailer(logger)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
