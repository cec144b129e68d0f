package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/api/handler"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/api/middleware"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/api/router"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/repository"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/service"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/database"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/jwt"
	applogger "github.com/MTES-MCT/mobilic-api-sub000/pkg/logger"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/redis"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("MOBILIC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateAuth(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting certification API",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Certification.Timezone),
	)

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("Database migration failed", zap.Error(err))
	}

	// 4. redis, optional: without it there is no rate limiting and no run lock
	var (
		locker  service.RunLocker
		limiter middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		locker, limiter = rdb, rdb
	}

	// 5. wiring: Repository -> Service -> Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, locker, logger)
	h := handler.NewHandler(svc, cfg.Certification.Location(), logger)

	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 6. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	database.Close(db)
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("Server stopped")
}
