package main

import (
	"context"
	"log"
	"time"

	"delivery-tracker/internal/core/cache"
	"delivery-tracker/internal/core/config"
	"delivery-tracker/internal/core/identity"
	"delivery-tracker/internal/core/logger"
	"delivery-tracker/internal/core/server"
	livehandler "delivery-tracker/internal/features/liveloc/handler"
	"delivery-tracker/internal/features/liveloc/hub"
	liveservice "delivery-tracker/internal/features/liveloc/service"
	"delivery-tracker/internal/features/liveloc/throttle"
	orderadapter "delivery-tracker/internal/features/orders/adapters"
	orderhandler "delivery-tracker/internal/features/orders/handler"
	orderservice "delivery-tracker/internal/features/orders/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title Delivery Tracker API
// @version 1.0
// @description Order lifecycle and live driver tracking for food delivery.
// @contact.name API Support
// @contact.email support@deliverytracker.io
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// One redis client backs the order store, the cache and the throttle state.
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		l.Fatal("Invalid REDIS_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opts)
	redisCache := cache.NewRedisAdapterWithClient(redisClient)
	defer redisCache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(ctx); err != nil {
		cancel()
		l.Fatal("Redis health check failed", zap.Error(err))
	}
	cancel()
	l.Info("Redis connection verified")

	// Orders feature.
	orderRepo := orderadapter.NewRedisOrderRepository(redisClient)
	orderSvc := orderservice.NewOrderService(orderRepo, cfg.Tracking.HistoryCap)
	orderHdl := orderhandler.NewOrderHandler(orderSvc)

	// Live location feature.
	registry := hub.New(cfg.Tracking.MaxSubscriptionsPerConn)
	throttler := throttle.New(
		throttle.NewRedisStateStore(redisCache, time.Duration(cfg.Tracking.ThrottleStateTTLMs)*time.Millisecond),
		time.Duration(cfg.Tracking.PersistIntervalMs)*time.Millisecond,
		cfg.Tracking.MinMoveDeltaDeg,
	)
	ingestSvc := liveservice.NewIngestService(orderRepo, throttler, registry,
		time.Duration(cfg.Tracking.WriteTimeoutMs)*time.Millisecond,
		time.Duration(cfg.Tracking.MinSampleGapWarnMs)*time.Millisecond,
	)
	locationHdl := livehandler.NewLocationHandler(ingestSvc)
	wsHdl := livehandler.NewWSHandler(registry, ingestSvc)

	srv := server.New(cfg)
	srv.App.Use(identity.Middleware())

	// Order lifecycle routes.
	srv.App.Post("/orders", identity.RequireRole(identity.RoleUser), orderHdl.PlaceOrder)
	srv.App.Post("/orders/:id/pay", identity.RequireRole(identity.RoleAdmin), orderHdl.ConfirmPayment)
	srv.App.Patch("/orders/:id/status", identity.RequireRole(identity.RoleAdmin), orderHdl.AdvanceStatus)
	srv.App.Get("/orders/:id/tracking", orderHdl.GetTracking)
	srv.App.Post("/orders/:id/assign-delivery", identity.RequireRole(identity.RoleAdmin), orderHdl.AssignDelivery)
	srv.App.Patch("/orders/:id/delivery-status", identity.RequireRole(identity.RoleDriver), orderHdl.UpdateDeliveryStatus)
	srv.App.Post("/orders/:id/accept", identity.RequireRole(identity.RoleDriver), orderHdl.AcceptOrder)
	srv.App.Get("/drivers/me/orders", identity.RequireRole(identity.RoleDriver), orderHdl.DriverOrders)
	srv.App.Post("/orders/:id/cancel", identity.RequireRole(identity.RoleUser), orderHdl.CancelOrder)

	// Live location routes.
	srv.App.Post("/orders/:id/location", identity.RequireRole(identity.RoleDriver), locationHdl.PostDriverLocation)
	srv.App.Get("/orders/:id/location", locationHdl.GetLocation)
	srv.App.Post("/orders/:id/user-location", locationHdl.PostUserLocation)
	srv.App.Get("/ws", wsHdl.Upgrade, wsHdl.Serve())

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
