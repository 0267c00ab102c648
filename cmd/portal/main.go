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
	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/client"
	"github.com/noah-isme/sma-teacher-portal/internal/portal"
	"github.com/noah-isme/sma-teacher-portal/internal/web"
	"github.com/noah-isme/sma-teacher-portal/pkg/config"
	"github.com/noah-isme/sma-teacher-portal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "portal")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("portal stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	backend, err := client.New(cfg.Portal.BackendURL, cfg.Portal.RequestTimeout)
	if err != nil {
		return err
	}

	sessions := web.NewSessionStore(cfg.Portal.SessionTTL, func() (*portal.EBookPage, *portal.ReportsPage) {
		return portal.NewEBookPage(backend, logr),
			portal.NewReportsPage(backend, cfg.Portal.Classes, cfg.Portal.DefaultClass, logr)
	})
	h, err := web.NewHandler(sessions, backend, cfg.EBooks.MaxFileSizeBytes, logr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Portal.Port),
		Handler:           web.NewRouter(h, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logr.Info("portal starting", zap.String("addr", srv.Addr), zap.String("backend", cfg.Portal.BackendURL))
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
