package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashendes/order-edit/internal/config"
	"github.com/ashendes/order-edit/internal/sandbox"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg := config.Load()
	gin.SetMode(gin.ReleaseMode)

	store := sandbox.NewStore()
	sandbox.Seed(store, time.Now())

	server := &http.Server{
		Addr: ":" + cfg.Sandbox.Port,
		Handler: sandbox.NewServer(store, sandbox.Options{
			Auth:     cfg.Auth,
			Chaos:    cfg.Sandbox.ChaosEnabled,
			SlowMode: cfg.Sandbox.ChaosSlowMode,
		}).Router(),
	}

	go func() {
		log.WithFields(log.Fields{
			"port":      cfg.Sandbox.Port,
			"chaos":     cfg.Sandbox.ChaosEnabled,
			"slow_mode": cfg.Sandbox.ChaosSlowMode,
		}).Info("Backend sandbox starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down backend sandbox...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed: ", err)
	}
}
