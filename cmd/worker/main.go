// Package main runs the background confirmation-email worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

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
	if cfg.Redis.Addr == "" {
		logger.Fatal("worker requires REDIS_ADDR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	processor := worker.NewConfirmationProcessor(a.Confirmations, a.Queue, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(ctx)
	}()
	logger.Info("worker started", zap.String("store", cfg.Store.Driver), zap.Int("pid", os.Getpid()))

	<-ctx.Done()
	<-done
	logger.Info("worker stopped")
}
