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

	_ "github.com/noah-isme/school-ops-api/api/swagger"
	"github.com/noah-isme/school-ops-api/internal/app"
	"github.com/noah-isme/school-ops-api/pkg/config"
	"github.com/noah-isme/school-ops-api/pkg/jobs"
	"github.com/noah-isme/school-ops-api/pkg/logger"
)

// @title School Ops API
// @version 1.0.0
// @description Class scheduling, recurring session generation and attendance roll-ups
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	application, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to bootstrap application", "error", err)
	}
	defer application.Close()

	application.Rollups.Start(ctx)
	defer application.Rollups.Stop()

	if cfg.Scheduler.CronEnabled {
		scheduler := jobs.NewCron(logr)
		err := scheduler.Register("session-maintenance", cfg.Scheduler.Cron, func(ctx context.Context) error {
			application.Scheduler.RunScheduled(ctx)
			return nil
		})
		if err != nil {
			logr.Sugar().Fatalw("failed to register session maintenance", "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.NewRouter(application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env, "db_driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logr.Sugar().Errorw("server failed", "error", err)
	case <-ctx.Done():
		logr.Sugar().Infow("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
