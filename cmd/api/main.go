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
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-teacher-portal/api/swagger"
	"github.com/noah-isme/sma-teacher-portal/internal/handler"
	"github.com/noah-isme/sma-teacher-portal/internal/repository"
	"github.com/noah-isme/sma-teacher-portal/internal/service"
	"github.com/noah-isme/sma-teacher-portal/pkg/cache"
	"github.com/noah-isme/sma-teacher-portal/pkg/config"
	"github.com/noah-isme/sma-teacher-portal/pkg/database"
	"github.com/noah-isme/sma-teacher-portal/pkg/jobs"
	"github.com/noah-isme/sma-teacher-portal/pkg/logger"
	"github.com/noah-isme/sma-teacher-portal/pkg/storage"
)

// @title SMA Teacher Portal API
// @version 1.0.0
// @description E-book library and class grade reports
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Grades)
	if err != nil {
		return err
	}
	probes := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		defer redisClient.Close()
		probes["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	files, err := storage.NewLocalStorage(cfg.EBooks.StorageDir)
	if err != nil {
		return err
	}
	signer := storage.NewDownloadSigner(cfg.EBooks.SignedURLSecret, cfg.EBooks.SignedURLTTL)

	metrics := service.NewMetricsService()
	validate := validator.New()

	cleanupQueue := jobs.NewQueue("ebook-file-cleanup", jobs.QueueConfig{
		Workers:    cfg.FileCleanup.Workers,
		MaxRetries: cfg.FileCleanup.MaxRetries,
		RetryDelay: cfg.FileCleanup.RetryDelay,
		Logger:     logr,
	})

	ebookSvc := service.NewEBookService(repository.NewEBookRepository(db), files, signer, cleanupQueue, metrics, validate, logr, service.EBookConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		MaxFileSize:   cfg.EBooks.MaxFileSizeBytes,
	})
	cleanupQueue.Register(service.JobTypeFileCleanup, ebookSvc.CleanupHandler())

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Grades.CacheTTL, logr, cfg.Grades.CacheEnabled)
	gradeSvc := service.NewGradeService(repository.NewGradeRepository(db), cacheSvc, service.NewExportService(nil, nil), metrics, validate, logr)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logr,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		EBooks:         handler.NewEBookHandler(ebookSvc, cfg.EBooks.MaxFileSizeBytes),
		Grades:         handler.NewGradeHandler(gradeSvc),
		Probes:         handler.NewMetricsHandler(metrics, probes),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
