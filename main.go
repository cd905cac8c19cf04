package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ops/cart"
	"github.com/yeremiapane/restaurant-ops/config"
	"github.com/yeremiapane/restaurant-ops/database"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/kds"
	"github.com/yeremiapane/restaurant-ops/router"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/storage"
	"github.com/yeremiapane/restaurant-ops/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)
	utils.ConfigureTokens(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	bus := events.NewBus()
	if cfg.KafkaEnabled() {
		forwarder := events.NewKafkaForwarder(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer forwarder.Close()
		bus.AddForwarder(forwarder)

		bridge := events.NewKafkaBridge(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, bus)
		defer bridge.Close()
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				utils.ErrorLogger.Errorf("Kafka bridge stopped: %v", err)
			}
		}()
		utils.InfoLogger.WithFields(logrus.Fields{
			"brokers": cfg.KafkaBrokers,
			"topic":   cfg.KafkaTopic,
		}).Info("Change notices shared over Kafka")
	}

	tables := services.NewTableService(db, bus)
	sideEffects := services.NewSideEffectLog(db)

	monitor := services.NewSideEffectMonitor(db, tables)
	monitor.Interval = cfg.SideEffectInterval
	monitor.MaxAttempts = cfg.SideEffectMaxAttempts
	monitor.Start()
	defer monitor.Stop()

	carts := cart.NewStore(cfg.CartTTL)
	carts.Start(time.Minute)
	defer carts.Stop()

	// Revoked tokens are only kept until they would have expired anyway.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				utils.PurgeBlacklist(now)
			}
		}
	}()

	hub := kds.NewHub()
	r := router.SetupRouter(router.Deps{
		Config:      cfg,
		Bus:         bus,
		Hub:         hub,
		Carts:       carts,
		Blobs:       storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadBytes),
		Users:       services.NewUserService(db),
		Restaurants: services.NewRestaurantService(db, bus),
		Menu:        services.NewMenuService(db, bus),
		Tables:      tables,
		Orders:      services.NewOrderService(db, bus, tables, sideEffects),
		Views:       services.NewViewService(db),
	})
	if err := r.SetTrustedProxies(nil); err != nil {
		utils.ErrorLogger.Warnf("Trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
}
