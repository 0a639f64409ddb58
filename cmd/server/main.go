package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/config"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/handler"
	"github.com/habitlog/internal/logging"
	"github.com/habitlog/internal/router"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	appLog := logging.Component(logger, logging.ComponentApp)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", logging.FieldError, err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		appLog.Error("failed to initialize database", logging.FieldError, err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(db.DB); err != nil {
			appLog.Warn("failed to close database", logging.FieldError, err)
		}
	}()

	api, err := handler.NewAPI(db.DB, handler.Options{
		AppPassword:   cfg.AppPassword,
		Location:      cfg.Location(),
		DashboardDays: cfg.DashboardDays,
		CacheSize:     cfg.CacheSize,
		CacheTTL:      cfg.CacheTTL,
	}, logger)
	if err != nil {
		appLog.Error("failed to build handlers", logging.FieldError, err)
		os.Exit(1)
	}

	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookie:  cfg.IsProduction(),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		appLog.Info("server listening", "addr", cfg.ListenAddr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("failed to run server", logging.FieldError, err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", logging.FieldError, err)
	}
}
