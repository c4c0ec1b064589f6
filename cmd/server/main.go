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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/api"
	"smplanner/marketing-app/internal/catalog"
	"smplanner/marketing-app/internal/config"
	"smplanner/marketing-app/internal/replica"
	repomongo "smplanner/marketing-app/internal/repository/mongo"
	"smplanner/marketing-app/internal/service"
	"smplanner/marketing-app/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting marketing planner server")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// --- Database Connection ---
	dbClient, err := repomongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := repomongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := repomongo.EnsureUserIndexes(ctx, appDB.Collection("users")); err != nil {
			logger.Warn("failed to create user indexes", zap.Error(err))
		}
		if err := repomongo.EnsureClientIndexes(ctx, appDB.Collection("clients")); err != nil {
			logger.Warn("failed to create client indexes", zap.Error(err))
		}
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Initialize Repositories ---
	userRepo := repomongo.NewMongoUserRepository(appDB)
	clientRepo := repomongo.NewMongoClientRepository(appDB)

	// --- Optional cloud replica ---
	var syncer *replica.Syncer
	if cfg.Redis.Addr != "" {
		recordStore, err := replica.NewRedisRecordStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("failed to connect to replica record store", zap.Error(err))
		}
		syncer = replica.NewSyncer(recordStore, clientRepo, logger)
		logger.Info("replica sync enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Info("replica sync disabled")
	}

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)

	var pusher service.ReplicaPusher
	if syncer != nil {
		pusher = syncer
	}
	clientService := service.NewClientService(clientRepo, fileStorage, pusher, catalog.Default(), logger)
	clientService.AddObserver(service.ObserverFunc(func() {
		logger.Debug("client collection changed")
	}))

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware
	api.SetupRoutes(router, cfg.JWT.Secret, authService, clientService, syncer, logger)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("server starting", zap.String("address", cfg.Server.Address))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
