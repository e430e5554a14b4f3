// Package main runs the registration and check-in HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/config"
	"github.com/PittChallenge/pittchallenge.com/internal/app"
	"github.com/PittChallenge/pittchallenge.com/internal/worker"
)

func main() {
	logger := app.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process confirmation worker when the queue is enabled; cmd/worker can run more.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if a.Queue != nil && cfg.Server.InProcessWorker {
		processor := worker.NewConfirmationProcessor(a.Confirmations, a.Queue, logger)
		go processor.Run(workerCtx)
		logger.Info("confirmation worker started")
	}

	if err := a.Live.Start(workerCtx); err != nil {
		logger.Warn("live check-in feed limited to this instance", zap.Error(err))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
