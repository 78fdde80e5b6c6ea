package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/jobs"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/routes"
	"github.com/lvt17/planex-be/utils"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	db, err := database.Connect(cfg)
	if err != nil {
		zap.L().Fatal("failed to connect database", zap.Error(err))
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if cfg.IsDevelopment() {
		zap.L().Info("running in development mode, performing auto-migration")
		if err := database.Migrate(db); err != nil {
			zap.L().Fatal("failed to migrate database", zap.Error(err))
		}
	}
	if n, err := database.PromotePlatformAdmins(db, cfg.PlatformAdminEmails); err != nil {
		zap.L().Warn("promote platform admins failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("platform admins promoted", zap.Int64("count", n))
	}

	utils.InitRedis(cfg)
	defer utils.CloseRedis()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go utils.Hub.Run(ctx)

	housekeeper := jobs.NewHousekeeper(db, cfg.Location)
	if _, err := housekeeper.Schedule(cfg.HousekeepingSpec); err != nil {
		zap.L().Fatal("invalid HOUSEKEEPING_SPEC", zap.String("spec", cfg.HousekeepingSpec), zap.Error(err))
	}
	housekeeper.Start()

	router := routes.InitRouter()

	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery -> Metrics -> Suspicious Activity
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(
							middleware.MetricsMiddleware(
								middleware.SuspiciousActivityMiddleware(router),
							),
						),
					),
				),
			),
		),
	)

	addr := ":" + cfg.Port
	// WriteTimeout stays 0: chat streams keep the response open. Regular
	// handlers are bounded by TimeoutMiddleware instead.
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		zap.L().Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down server")

	// Cancels the hub relay and every open chat stream
	stop()
	housekeeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zap.L().Info("server exited")
}
