package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-signal-notifier/internal/feed/config"
	delivery "golang-signal-notifier/internal/feed/delivery/http"
	_ "golang-signal-notifier/internal/feed/docs"
	"golang-signal-notifier/internal/feed/effect"
	"golang-signal-notifier/internal/feed/repository"
	"golang-signal-notifier/internal/feed/service"
	"golang-signal-notifier/pkg/dedupe"
	"golang-signal-notifier/pkg/logger"
	"golang-signal-notifier/pkg/postgres"
	"golang-signal-notifier/pkg/redis"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the notification feed service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Feed Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	notifRepo := repository.NewNotificationRepository(db.DB)
	prefRepo := repository.NewUserPreferenceRepository(db.DB)
	changefeed := repository.NewRedisNotificationChangefeed(redisClient.Client, appLogger)

	// Initialize services
	guard := dedupe.NewGuard()
	cache := service.NewCache()
	sounds := effect.NewSoundDispatcher()
	feedManager := service.NewFeedManager(cfg, appLogger, guard, changefeed, notifRepo, prefRepo, cache, sounds)
	notificationSvc := service.NewNotificationService(cfg, appLogger, notifRepo, cache)

	// Start the retention sweeper
	sweeper := cron.New()
	if cfg.Feed.RetentionCronSpec != "" {
		if _, err := sweeper.AddFunc(cfg.Feed.RetentionCronSpec, func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			notificationSvc.SweepExpired(sweepCtx)
		}); err != nil {
			appLogger.Fatal("Invalid retention cron spec", logger.ErrorField(err))
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	notificationHandler := delivery.NewNotificationHandler(feedManager, notificationSvc, sounds, appLogger)
	apiV1 := e.Group("/api/v1")
	notificationHandler.RegisterRoutes(apiV1)

	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

// @title Notification Feed API
// @version 1.0
// @description Live notification feed and mutation API for trading signal subscribers.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "feed-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-feed.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing feed-service CLI: %s\n", err)
		os.Exit(1)
	}
}
