package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashendes/order-edit/internal/api"
	"github.com/ashendes/order-edit/internal/auth"
	"github.com/ashendes/order-edit/internal/cache"
	"github.com/ashendes/order-edit/internal/client"
	"github.com/ashendes/order-edit/internal/config"
	"github.com/ashendes/order-edit/internal/events"
	"github.com/ashendes/order-edit/internal/geocode"
	"github.com/ashendes/order-edit/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
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

	// Geocoding results and menus are cached in Redis when it is configured
	var store cache.Store = cache.Nop{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.WithField("addr", cfg.Redis.Addr).Warn("Redis unavailable, caching disabled: ", err)
		} else {
			store = cache.NewRedisCache(redisClient, "order-edit")
			log.WithField("addr", cfg.Redis.Addr).Info("Redis cache connected")
		}
	}

	backend := client.NewBackend(cfg.Backend, auth.FromConfig(cfg.Auth))
	clients := client.New(backend, store, cfg.Editing.MenuCacheTTL)
	geocoder := geocode.NewClient(cfg.Maps, store)

	publisher := events.New(cfg.Kafka)
	defer publisher.Close()

	sessions := session.NewRegistry(session.Dependencies{
		Orders:          clients.Orders,
		Cart:            clients.Cart,
		Menus:           clients.Menu,
		Pricing:         clients.Pricing,
		Coupons:         clients.Coupons,
		Geocoder:        geocoder,
		AddressBook:     clients.Addresses,
		Events:          publisher,
		PricingDebounce: cfg.Editing.PricingDebounce,
		SearchDebounce:  cfg.Editing.SearchDebounce,
	})
	defer sessions.CloseAll()

	circuits := func() []client.CircuitStatus {
		return append(backend.Circuits(), geocoder.Circuit())
	}
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(sessions, clients.Addresses, circuits).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.Server.Port,
			"backend_url": cfg.Backend.BaseURL,
			"maps_url":    cfg.Maps.BaseURL,
			"kafka":       len(cfg.Kafka.Brokers) > 0,
		}).Info("Order Edit Service starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down order edit service...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed: ", err)
	}
	log.Info("Order edit service stopped")
}
