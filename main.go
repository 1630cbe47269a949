package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anzil-km/attention-nudge/config"
	"github.com/Anzil-km/attention-nudge/db"
	"github.com/Anzil-km/attention-nudge/handlers"
	"github.com/Anzil-km/attention-nudge/services"
	"github.com/Anzil-km/attention-nudge/store"
	"github.com/Anzil-km/attention-nudge/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	if err := services.EnsureVAPIDKeys(cfg, logger); err != nil {
		logger.Fatal("Failed to prepare VAPID keys", "error", err)
	}

	// Open the state store
	st, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", "backend", cfg.StoreBackend, "error", err)
	}
	defer st.Close()

	// Initialize services
	policy := services.NewIdentityPolicy(cfg.IdentityMode, cfg.AllowedRoles)
	presence := services.NewPresenceTracker(st, policy, cfg.OnlineWindow, logger)
	registry := services.NewSubscriptionRegistry(st, cfg.MaxDevicesPerKey, logger)
	transport := services.NewWebPushTransport(cfg, nil, logger)
	dispatcher := services.NewNudgeDispatcher(registry, transport, logger)
	coordination := services.NewCoordinationService(policy, presence, registry, dispatcher,
		services.NudgeContent{Title: cfg.NudgeTitle, Body: cfg.NudgeBody}, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := handlers.NewCoordinationHandler(coordination, cfg, logger)
	router := handlers.NewRouter(cfg.BasePath, handler, logger)

	// Create HTTP server. No WriteTimeout: watch streams are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting attention nudge service",
			"port", cfg.Port,
			"base_path", cfg.BasePath,
			"identity_mode", cfg.IdentityMode,
			"store", cfg.StoreBackend,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := store.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client), nil
	case config.StorePostgres:
		database, err := db.Connect(cfg)
		if err != nil {
			return nil, err
		}
		return store.NewSQLStore(database)
	default:
		return store.NewMemoryStore(), nil
	}
}
