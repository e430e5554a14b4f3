// Package main runs the CORS relay in front of the check-in functions.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/config"
	"github.com/PittChallenge/pittchallenge.com/internal/app"
	"github.com/PittChallenge/pittchallenge.com/internal/middleware"
	"github.com/PittChallenge/pittchallenge.com/internal/relay"
)

func main() {
	logger := app.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	h, err := relay.NewHandler(cfg.Relay.Upstreams, logger)
	if err != nil {
		logger.Fatal("relay", zap.Error(err))
	}
	if len(cfg.Relay.Upstreams) == 0 {
		logger.Warn("relay has no upstreams; every request will be rejected")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Any("/", h.Serve)

	srv := &http.Server{
		Addr:         ":" + cfg.Relay.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info("relay listening", zap.String("port", cfg.Relay.Port), zap.Int("upstreams", len(cfg.Relay.Upstreams)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("relay", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("relay shutdown", zap.Error(err))
	}
	logger.Info("relay stopped")
}
