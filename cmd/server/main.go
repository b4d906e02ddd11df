// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/agentsearch/internal/api"
	"github.com/Ayash-Bera/agentsearch/internal/api/handlers"
	"github.com/Ayash-Bera/agentsearch/internal/config"
	"github.com/Ayash-Bera/agentsearch/internal/health"
	"github.com/Ayash-Bera/agentsearch/internal/metrics"
	"github.com/Ayash-Bera/agentsearch/internal/middleware"
	"github.com/Ayash-Bera/agentsearch/internal/orchestrator"
	"github.com/Ayash-Bera/agentsearch/internal/tasks"
	"github.com/Ayash-Bera/agentsearch/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	// Initialize logger
	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.Info("Starting agentsearch server...")

	gin.SetMode(cfg.Server.Mode)

	recorder := metrics.NewRecorder(metrics.WithHistorySize(cfg.Metrics.HistorySize))

	orch, err := orchestrator.NewFromConfig(cfg, recorder, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build search pipeline")
	}

	taskManager, err := tasks.NewManager(orch, cfg.Tasks.PoolSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create task manager")
	}
	defer taskManager.Release()

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute)
		defer limiter.Stop()
	}

	router := api.NewRouter(api.RouterConfig{
		Search: handlers.NewSearchHandler(
			orch,
			taskManager,
			recorder,
			cfg.Retrieval.DefaultMaxResults,
			cfg.Retrieval.MaxResultsLimit,
			logger,
		),
		System:      handlers.NewSystemHandler(orch, health.NewChecker(orch, orch.Cache(), recorder, logger), logger),
		RateLimiter: limiter,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.WithField("total_searches", recorder.TotalSearches()).Info("Server stopped")
}
